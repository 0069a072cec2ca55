package xconfig

import "testing"

func TestApplyFile_SecuritySectionReachesGetList(t *testing.T) {
	m := NewMerged()
	fc := &FileConfig{
		Security: SecuritySection{
			ExtraRedactPatterns:  []string{`sk-[a-zA-Z0-9]+`, `ghp_[a-zA-Z0-9]+`},
			IgnoreRedactPatterns: []string{"testdata/fixtures/*"},
		},
	}
	m.ApplyFile(fc)

	extra := m.GetList("security.extra_redact_patterns")
	if len(extra) != 2 || extra[0] != `sk-[a-zA-Z0-9]+` || extra[1] != `ghp_[a-zA-Z0-9]+` {
		t.Fatalf("security.extra_redact_patterns = %v, want the two configured patterns", extra)
	}
	ignore := m.GetList("security.ignore_redact_patterns")
	if len(ignore) != 1 || ignore[0] != "testdata/fixtures/*" {
		t.Fatalf("security.ignore_redact_patterns = %v, want [testdata/fixtures/*]", ignore)
	}

	v, ok := m.Get("security.extra_redact_patterns")
	if !ok || v.Source != SourceFile {
		t.Fatalf("Get(security.extra_redact_patterns) = %+v, ok=%v, want source=config", v, ok)
	}
}

func TestApplyFile_EmptySecuritySectionLeavesKeysUnset(t *testing.T) {
	m := NewMerged()
	m.ApplyFile(&FileConfig{})

	if v := m.GetList("security.extra_redact_patterns"); v != nil {
		t.Fatalf("expected no extra redact patterns, got %v", v)
	}
	if v := m.GetList("security.ignore_redact_patterns"); v != nil {
		t.Fatalf("expected no ignore redact patterns, got %v", v)
	}
}

func TestApplyFile_ProgrammaticOverridesFileLayer(t *testing.T) {
	m := NewMerged()
	m.ApplyFile(&FileConfig{Defaults: DefaultsSection{Model: "gemini_cli"}})
	m.SetProgrammatic("defaults.model", "claude_cli")

	v, ok := m.Get("defaults.model")
	if !ok || v.Value != "claude_cli" || v.Source != SourceProgrammatic {
		t.Fatalf("Get(defaults.model) = %+v, ok=%v, want claude_cli from programmatic", v, ok)
	}
}
