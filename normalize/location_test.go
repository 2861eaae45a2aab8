package normalize

import "testing"

func TestResolveLocation(t *testing.T) {
	r := NewLocationResolver(SwedishCities())

	tests := []struct {
		raw  string
		want string
	}{
		{"BILIA GÖTEBORG - GÖTEBORG", "GÖTEBORG"},
		{"VOLVO CAR - UPPLANDS VÄSBY", "UPPLANDS VÄSBY"},
		{"UPPLANDS V�SBY", "UPPLANDS VÄSBY"},
		{"Volvo Car — Uppsala", "UPPSALA"},
		{"Stockholm - Kungens kurva 12", "STOCKHOLM"},
		{"Bilbolaget - Ny Stad", "NY STAD"},
		{"Bilia Outlet Bilhall Hisingen Aröd", "ARÖD"},
		{"Bilia Kungens Kurva Volvo", "KUNGENS KURVA"},
		{"Bilia Sisjön Volvo", "SISJÖN"},
		{"J�NK�PING", "JÖNKÖPING"},
		{"Bilia G�teborg Hisingen", "GÖTEBORG"},
		{"malmö", "MALMÖ"},
		{"Brandt Personbilar Lindesberg", "LINDESBERG"},
		{"Okänd handlare", "OKÄND HANDLARE"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := r.Resolve(tt.raw); got != tt.want {
			t.Errorf("Resolve(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestResolveLocationDecomposedAccents(t *testing.T) {
	r := NewLocationResolver(SwedishCities())
	// "VÄXJÖ" spelled with combining diaeresis marks.
	decomposed := "VA\u0308XJO\u0308"
	if got := r.Resolve(decomposed); got != "VÄXJÖ" {
		t.Errorf("Resolve(decomposed) = %q; want VÄXJÖ", got)
	}
}

func TestStrategiesIndependently(t *testing.T) {
	r := NewLocationResolver(SwedishCities())

	if _, ok := r.repairEncoding("STOCKHOLM"); ok {
		t.Error("repairEncoding should not fire without a marker")
	}
	if city, ok := r.splitDealerCity("KUNGSBACKA - HANDELSVÄGEN 3"); !ok || city != "KUNGSBACKA" {
		t.Errorf("splitDealerCity: got (%q, %v)", city, ok)
	}
	if city, ok := r.scanKnownCities("HAMMARBY SJÖSTAD BILHALL"); !ok || city != "HAMMARBY SJÖSTAD" {
		t.Errorf("scanKnownCities: got (%q, %v)", city, ok)
	}
	if city, ok := r.stripDealerPrefix("REJMES PERSONVAGNAR - LINKÖPING"); !ok || city != "LINKÖPING" {
		t.Errorf("stripDealerPrefix: got (%q, %v)", city, ok)
	}
	if _, ok := r.exactCity("GOTHAM"); ok {
		t.Error("exactCity should reject unknown names")
	}
}

func TestGazetteerMultiWordOrder(t *testing.T) {
	g := NewGazetteer("BRO", "UPPLANDS BRO", "KUNGENS KURVA", "UPPLANDS VÄSBY", "BRO")
	if g.Len() != 4 {
		t.Fatalf("Len: got %d, want 4", g.Len())
	}
	mw := g.MultiWord()
	if len(mw) != 3 {
		t.Fatalf("MultiWord: got %v", mw)
	}
	for i := 1; i < len(mw); i++ {
		if len(mw[i]) > len(mw[i-1]) {
			t.Errorf("MultiWord not longest-first: %v", mw)
		}
	}
}
