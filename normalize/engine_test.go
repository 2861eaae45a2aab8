package normalize

import "testing"

func TestEngineBandsInferBoundaries(t *testing.T) {
	bands := DefaultEngineBands()

	tests := []struct {
		hp   int
		want string
	}{
		{455, "T8"},
		{380, "T8"},
		{379, "T6"},
		{250, "T6"},
		{249, "B5"},
		{230, "B5"},
		{229, "B4"},
		{197, "B4"},
		{0, "B4"},
	}

	for _, tt := range tests {
		if got := bands.Infer(tt.hp); got != tt.want {
			t.Errorf("Infer(%d) = %q; want %q", tt.hp, got, tt.want)
		}
	}
}

func TestEngineBandsMidBandConfigurable(t *testing.T) {
	bands := DefaultEngineBands()
	bands.MidBandCode = "T5"

	if got := bands.Infer(240); got != "T5" {
		t.Errorf("Infer(240) = %q; want T5", got)
	}
	if got := bands.Infer(250); got != "T6" {
		t.Errorf("Infer(250) = %q; want T6", got)
	}
}

func TestExtractEngineCode(t *testing.T) {
	tests := []struct {
		variant string
		want    string
	}{
		{"T8 Plus Dark Nordic Edition", "T8"},
		{"Recharge T6 Plus Bright", "T6"},
		{"XC60 B4 AWD Core", "B4"},
		{"D4 AWD Momentum", "D4"},
		{"XC60 Recharge Plus", ""},
		{"T65 Special", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExtractEngineCode(tt.variant); got != tt.want {
			t.Errorf("ExtractEngineCode(%q) = %q; want %q", tt.variant, got, tt.want)
		}
	}
}

func TestEngineCodePrefersTokenOverInference(t *testing.T) {
	hp := 455
	code, inferred := EngineCode("B5 AWD Plus", &hp, DefaultEngineBands())
	if code != "B5" || inferred {
		t.Errorf("EngineCode token: got (%q, %v); want (B5, false)", code, inferred)
	}

	code, inferred = EngineCode("Recharge Plus", &hp, DefaultEngineBands())
	if code != "T8" || !inferred {
		t.Errorf("EngineCode inferred: got (%q, %v); want (T8, true)", code, inferred)
	}

	code, inferred = EngineCode("Recharge Plus", nil, DefaultEngineBands())
	if code != "" || inferred {
		t.Errorf("EngineCode no data: got (%q, %v); want (\"\", false)", code, inferred)
	}
}

func TestExtractHorsepower(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"455 Hk", 455, true},
		{"350 hk / 261 kW", 350, true},
		{"250HK", 250, true},
		{"261 kW", 0, false},
		{"", 0, false},
		{"okänd", 0, false},
	}

	for _, tt := range tests {
		got := ExtractHorsepower(tt.raw)
		if !tt.ok {
			if got != nil {
				t.Errorf("ExtractHorsepower(%q) = %d; want nil", tt.raw, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("ExtractHorsepower(%q) = %v; want %d", tt.raw, got, tt.want)
		}
	}
}
