package vfsbox

import "testing"

func TestSplitName(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		params map[string]string
	}{
		{"plain.db", "plain.db", nil},
		{"file:/data/main.db", "/data/main.db", nil},
		{"file:/main.db?ptr=0xf05538&sz=14336&maxsz=65536", "/main.db", map[string]string{
			"ptr": "0xf05538", "sz": "14336", "maxsz": "65536",
		}},
		{"main.db?flag", "main.db", map[string]string{"flag": ""}},
		{"odd%name.db?k=v", "odd%name.db", map[string]string{"k": "v"}},
		{"dup.db?k=1&k=2", "dup.db", map[string]string{"k": "2"}},
	}

	for _, tt := range tests {
		path, params := SplitName(tt.name)
		if path != tt.path {
			t.Errorf("SplitName(%q) path = %q, want %q", tt.name, path, tt.path)
		}
		if len(params) != len(tt.params) {
			t.Errorf("SplitName(%q) params = %v, want %v", tt.name, params, tt.params)
			continue
		}
		for k, v := range tt.params {
			if params[k] != v {
				t.Errorf("SplitName(%q) params[%q] = %q, want %q", tt.name, k, params[k], v)
			}
		}
	}
}

func TestNameParamsInt64(t *testing.T) {
	_, params := SplitName("x?dec=14336&hex=0xF05538&neg=-7&bad=zz")

	if got := params.Int64("dec", -1); got != 14336 {
		t.Errorf("dec = %d, want 14336", got)
	}
	if got := params.Int64("hex", -1); got != 0xF05538 {
		t.Errorf("hex = %d, want %d", got, 0xF05538)
	}
	if got := params.Int64("neg", 0); got != -7 {
		t.Errorf("neg = %d, want -7", got)
	}
	if got := params.Int64("bad", 42); got != 42 {
		t.Errorf("bad = %d, want default 42", got)
	}
	if got := params.Int64("missing", 42); got != 42 {
		t.Errorf("missing = %d, want default 42", got)
	}
}

func TestNameParamsUint64(t *testing.T) {
	_, params := SplitName("x?ptr=0xdeadbeef&neg=-1")

	if got := params.Uint64("ptr", 0); got != 0xdeadbeef {
		t.Errorf("ptr = %#x, want 0xdeadbeef", got)
	}
	if got := params.Uint64("neg", 9); got != 9 {
		t.Errorf("neg = %d, want default 9", got)
	}
}

func TestNameParamsBool(t *testing.T) {
	_, params := SplitName("x?on=1&off=0&hex=0x2")

	if !params.Bool("on", false) {
		t.Error("on = false, want true")
	}
	if params.Bool("off", true) {
		t.Error("off = true, want false")
	}
	if !params.Bool("hex", false) {
		t.Error("hex = false, want true")
	}
	if !params.Bool("missing", true) {
		t.Error("missing = false, want default true")
	}
}

func TestNameParamsNilSafe(t *testing.T) {
	var params NameParams
	if got := params.Int64("k", 5); got != 5 {
		t.Errorf("nil params Int64 = %d, want 5", got)
	}
}
