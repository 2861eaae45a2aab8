package normalize

import "testing"

func TestFuelType(t *testing.T) {
	tests := []struct {
		fuel     string
		electric string
		want     string
	}{
		{"Laddhybrid", "", FuelPluginHybrid},
		{"Plug-in hybrid", "", FuelPluginHybrid},
		{"Bensin+El", "", FuelPluginHybrid},
		{"Bensin + El", "", FuelPluginHybrid},
		{"Mildhybrid bensin", "", FuelMildHybrid},
		{"Hybrid", "", FuelHybrid},
		{"El", "", FuelElectric},
		{"Diesel", "", FuelDiesel},
		{"Bensin", "", FuelPetrol},
		{"Bensin", "Laddhybrid", FuelPluginHybrid},
		{"El", "Elbil", FuelElectric},
		{"Bensin", "Mildhybrid", FuelMildHybrid},
		{"Diesel", "okänd", FuelDiesel},
		{"Vätgas", "", "Vätgas"},
		{"", "Laddhybrid", ""},
	}

	for _, tt := range tests {
		if got := FuelType(tt.fuel, tt.electric); got != tt.want {
			t.Errorf("FuelType(%q, %q) = %q; want %q", tt.fuel, tt.electric, got, tt.want)
		}
	}
}

func TestTransmissionAndDrive(t *testing.T) {
	trans := []struct{ in, want string }{
		{"Automat", TransmissionAutomatic},
		{"Automatisk", TransmissionAutomatic},
		{"Manuell", TransmissionManual},
		{"CVT", "CVT"},
		{"", ""},
	}
	for _, tt := range trans {
		if got := Transmission(tt.in); got != tt.want {
			t.Errorf("Transmission(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}

	drive := []struct{ in, want string }{
		{"Fyrhjulsdrift", DriveAWD},
		{"AWD", DriveAWD},
		{"4WD", DriveAWD},
		{"Framhjulsdrift", DriveFWD},
		{"fwd", DriveFWD},
		{"Bakhjulsdrift", "Bakhjulsdrift"},
		{"  ", ""},
	}
	for _, tt := range drive {
		if got := DrivingType(tt.in); got != tt.want {
			t.Errorf("DrivingType(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestFranchiseApproved(t *testing.T) {
	tests := []struct {
		in   string
		want *bool
	}{
		{"True", boolPtr(true)},
		{"ja", boolPtr(true)},
		{"False", boolPtr(false)},
		{"Nej", boolPtr(false)},
		{"", nil},
		{"kanske", nil},
	}
	for _, tt := range tests {
		got := FranchiseApproved(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("FranchiseApproved(%q) = %v; want nil", tt.in, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("FranchiseApproved(%q) = %v; want %v", tt.in, got, *tt.want)
		}
	}
}

func boolPtr(v bool) *bool { return &v }
