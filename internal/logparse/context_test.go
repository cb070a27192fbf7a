package logparse

import "testing"

func TestDetectorModes(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  SparkMode
	}{
		{
			"yarn",
			[]string{
				"24/01/01 10:00:00 INFO Client: Submitting application to ResourceManager",
				"24/01/01 10:00:01 INFO ApplicationMaster: Registered with RM",
				"24/01/01 10:00:02 INFO Client: container_1704100000000_0001_01_000001",
			},
			ModeYARN,
		},
		{
			"kubernetes",
			[]string{
				"24/01/01 10:00:00 INFO KubernetesClusterSchedulerBackend: starting",
				"24/01/01 10:00:01 INFO ExecutorPodsAllocator: pod_spark-exec-1 pending",
			},
			ModeKubernetes,
		},
		{
			"standalone",
			[]string{
				"24/01/01 10:00:00 INFO StandaloneSchedulerBackend: Connected to spark://master:7077",
			},
			ModeStandalone,
		},
		{
			"local",
			[]string{
				"24/01/01 10:00:00 INFO SparkContext: master set to local[4]",
			},
			ModeLocal,
		},
		{
			"no markers",
			[]string{
				"24/01/01 10:00:00 INFO SparkContext: starting up",
			},
			ModeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(nil, nil, 0)
			for _, line := range tt.lines {
				d.Observe(line)
			}
			if got := d.Context().Mode; got != tt.want {
				t.Errorf("Mode = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetectorLanguages(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  SourceLanguage
	}{
		{
			"python",
			[]string{
				"24/01/01 10:00:00 INFO SparkContext: Running PySpark job /app/etl.py",
				"Traceback (most recent call last):",
			},
			LangPython,
		},
		{
			"scala",
			[]string{
				"24/01/01 10:00:00 ERROR Executor: scala.MatchError at Job.scala:42",
				"24/01/01 10:00:01 INFO DAGScheduler: stage from Transform.scala",
			},
			LangScala,
		},
		{
			"sql",
			[]string{
				"24/01/01 10:00:00 INFO SparkSQL: select * from events where day = '2024-01-01'",
				"24/01/01 10:00:01 INFO SparkSQL: insert into warehouse.events_clean",
			},
			LangSQL,
		},
		{
			"unknown",
			[]string{"24/01/01 10:00:00 INFO Master: started"},
			LangUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(nil, nil, 0)
			for _, line := range tt.lines {
				d.Observe(line)
			}
			if got := d.Context().DominantLanguage; got != tt.want {
				t.Errorf("DominantLanguage = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetectorTieBrokenByDeclarationOrder(t *testing.T) {
	// One marker hit for each of two modes; the earlier table entry wins.
	d := NewDetector(nil, nil, 0)
	d.Observe("yarn cluster with kubernetes migration planned")
	if got := d.Context().Mode; got != ModeYARN {
		t.Errorf("Mode = %s, want YARN (declared first)", got)
	}
}

func TestDetectorPrefixBound(t *testing.T) {
	d := NewDetector(nil, nil, 2)
	d.Observe("plain line")
	d.Observe("another plain line")
	d.Observe("this yarn marker arrives past the prefix")
	if got := d.Context().Mode; got != ModeUnknown {
		t.Errorf("Mode = %s, lines past the prefix must not score", got)
	}
}

func TestDetectorCustomSignatures(t *testing.T) {
	modes := []ModeSignature{{ModeStandalone, []string{"bespoke-banner"}}}
	d := NewDetector(modes, nil, 0)
	d.Observe("bespoke-banner present")
	if got := d.Context().Mode; got != ModeStandalone {
		t.Errorf("Mode = %s, want STANDALONE from custom table", got)
	}
}

func TestDetectEntryLanguage(t *testing.T) {
	tests := []struct {
		text string
		want SourceLanguage
	}{
		{"boom\n\tat com.foo.Bar.run(Bar.java:10)", LangJava},
		{`Traceback (most recent call last):` + "\n" + `  File "/app/job.py", line 3`, LangPython},
		{"scala.MatchError: 7 at Job.scala:42", LangScala},
		{"plain message with nothing to go on", LangUnknown},
	}
	for _, tt := range tests {
		if got := detectEntryLanguage(tt.text); got != tt.want {
			t.Errorf("detectEntryLanguage(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}
