package logparse

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		seenHead bool
		want     LineRole
	}{
		{"iso head", "2024-01-01 10:00:00 ERROR Executor: OOM", true, RoleHead},
		{"iso head with millis", "2024-01-01 10:00:00.123 INFO SparkContext: starting", true, RoleHead},
		{"iso head comma millis", "2024-01-01 10:00:00,123 WARN TaskSetManager: lost task", true, RoleHead},
		{"iso head T separator", "2024-01-01T10:00:00 INFO Utils: ok", true, RoleHead},
		{"spark short head", "24/01/01 10:00:00 INFO SparkContext: Running Spark", true, RoleHead},
		{"bracketed level", "2024-01-01 10:00:00 [ERROR] Executor: boom", true, RoleHead},
		{"warning token", "2024-01-01 10:00:00 WARNING Utils: deprecated", true, RoleHead},
		{"severe token", "2024-01-01 10:00:00 SEVERE Master: down", true, RoleHead},

		{"jvm frame", "\tat com.foo.Bar.run(Bar.java:10)", true, RoleStackFrame},
		{"jvm frame spaces", "    at org.apache.spark.scheduler.Task.run(Task.scala:139)", true, RoleStackFrame},
		{"caused by", "Caused by: java.io.IOException: broken pipe", true, RoleStackFrame},
		{"frame ellipsis", "\t... 12 more", true, RoleStackFrame},
		{"python traceback", "Traceback (most recent call last):", true, RoleStackFrame},
		{"python frame", `  File "/app/job.py", line 42, in main`, true, RoleStackFrame},
		{"r error", "Error in func(x) : object not found", true, RoleStackFrame},

		{"blank", "", true, RoleBlank},
		{"whitespace only", "   \t  ", true, RoleBlank},

		{"continuation", "this line has no timestamp", true, RoleContinuation},
		{"level without timestamp", "ERROR something bad", true, RoleContinuation},
		{"embedded level mid-line", "select 'ERROR' from t", true, RoleContinuation},

		// Orphan frames before the first head are promoted so continuations
		// always have a record to attach to.
		{"orphan frame promoted", "\tat com.foo.Bar.run(Bar.java:10)", false, RoleHead},
		{"orphan caused by promoted", "Caused by: java.io.IOException", false, RoleHead},
		{"orphan continuation stays", "no timestamp here", false, RoleContinuation},

		// Head wins over frame shape when both could match.
		{"head beats frame", "2024-01-01 10:00:00 ERROR Executor: failed at stage 3", true, RoleHead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.line, tt.seenHead); got != tt.want {
				t.Errorf("Classify(%q, %v) = %s, want %s", tt.line, tt.seenHead, got, tt.want)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	line := "2024-01-01 10:00:00 INFO SparkContext: deterministic"
	first := Classify(line, true)
	for i := 0; i < 100; i++ {
		if got := Classify(line, true); got != first {
			t.Fatalf("classification changed between calls: %s then %s", first, got)
		}
	}
}

func TestLineRoleString(t *testing.T) {
	tests := []struct {
		role LineRole
		want string
	}{
		{RoleHead, "head"},
		{RoleContinuation, "continuation"},
		{RoleStackFrame, "stack_frame"},
		{RoleBlank, "blank"},
		{LineRole(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.role.String(); got != tt.want {
			t.Errorf("LineRole(%d).String() = %q, want %q", tt.role, got, tt.want)
		}
	}
}
