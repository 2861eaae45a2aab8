package services

import (
	"fmt"

	"car-deal-finder/models"
	"car-deal-finder/normalize"
	"car-deal-finder/utils"
)

var (
	fixtureHorsepower = []int{197, 250, 350, 455, 235}
	fixtureVariants   = []string{"XC60 B4 Core", "XC60 T6 Recharge", "XC60 T6 AWD Plus", "XC60 T8 Recharge Ultimate", "XC60 Momentum"}
	fixtureCities     = []string{"BILIA GÖTEBORG - GÖTEBORG", "VOLVO CAR - UPPLANDS VÄSBY", "J\uFFFDNK\uFFFDPING", "Malmö", "Stockholm - Kungens kurva 12"}
)

// fixturePrice is a deterministic price with a little structured noise.
func fixturePrice(i, year, mileage, hp int) int {
	noise := (i*7919)%30000 - 15000
	return 250000 + 30000*(year-2018) - mileage + 900*hp + noise
}

func fixtureRecord(i int, reg string) map[string]string {
	year := 2018 + i%6
	mileage := 5000 + (i*3761)%140000
	hp := fixtureHorsepower[i%len(fixtureHorsepower)]
	drive := "Fyrhjulsdrift"
	if i%4 == 0 {
		drive = "Framhjulsdrift"
	}
	fuel := "Laddhybrid"
	switch {
	case i%7 == 0:
		fuel = "Diesel"
	case i%7 == 6:
		fuel = "Bensin"
	}
	return map[string]string{
		"registration_number": reg,
		"price":               fmt.Sprint(fixturePrice(i, year, mileage, hp)),
		"model_year":          fmt.Sprint(year),
		"mileage":             fmt.Sprint(mileage),
		"model_variant":       fixtureVariants[i%len(fixtureVariants)],
		"fuel_type":           fuel,
		"engine_power":        fmt.Sprintf("%d Hk", hp),
		"transmission":        "Automat",
		"driving_type":        drive,
		"color":               "Svart",
		"location":            fixtureCities[i%len(fixtureCities)],
		"detail_url":          "https://example.test/" + reg,
	}
}

// renameColumns applies the dealer-site column names to a record.
func renameColumns(rec map[string]string) map[string]string {
	renames := map[string]string{
		"model_variant":       "version",
		"driving_type":        "drive_wheels",
		"registration_number": "registration",
		"detail_url":          "url",
	}
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		if alias, ok := renames[k]; ok {
			k = alias
		}
		out[k] = v
	}
	return out
}

func headerOf(rec map[string]string) []string {
	h := make([]string, 0, len(rec))
	for k := range rec {
		h = append(h, k)
	}
	return h
}

// sourceFixture builds 40/30/20 row tables for the three sources. "ABC123"
// appears in all three with different prices; the volvo_selekt copy costs
// 444 000.
func sourceFixture() []*models.SourceTable {
	selekt := &models.SourceTable{Source: models.SourceVolvoSelekt}
	bilia := &models.SourceTable{Source: models.SourceBilia}
	rejmes := &models.SourceTable{Source: models.SourceRejmes}

	row := 0
	for i := 0; i < 40; i++ {
		reg := fmt.Sprintf("VS%03d", i)
		if i == 7 {
			reg = "ABC123"
		}
		rec := fixtureRecord(row, reg)
		if i == 7 {
			rec["price"] = "444 000 kr"
		}
		rec["franchise_approved"] = fmt.Sprint(i%2 == 0)
		selekt.Records = append(selekt.Records, rec)
		row++
	}
	for i := 0; i < 30; i++ {
		reg := fmt.Sprintf("BI%03d", i)
		if i == 3 {
			reg = "abc 123"
		}
		rec := fixtureRecord(row, reg)
		if i == 3 {
			rec["price"] = "455000"
		}
		bilia.Records = append(bilia.Records, renameColumns(rec))
		row++
	}
	for i := 0; i < 20; i++ {
		reg := fmt.Sprintf("RJ%03d", i)
		if i == 0 {
			reg = " ABC123 "
		}
		rec := fixtureRecord(row, reg)
		if i == 0 {
			rec["price"] = "466000"
		}
		if rec["fuel_type"] == "Laddhybrid" {
			rec["fuel_type"] = "Hybrid el/bensin"
		}
		rejmes.Records = append(rejmes.Records, renameColumns(rec))
		row++
	}

	selekt.Header = headerOf(selekt.Records[0])
	bilia.Header = headerOf(bilia.Records[0])
	rejmes.Header = headerOf(rejmes.Records[0])
	return []*models.SourceTable{selekt, bilia, rejmes}
}

// canonicalFixture returns n fully populated canonical listings.
func canonicalFixture(n int) []*models.CanonicalListing {
	out := make([]*models.CanonicalListing, n)
	for i := 0; i < n; i++ {
		year := 2018 + i%6
		mileage := 5000 + (i*3761)%140000
		hp := fixtureHorsepower[i%len(fixtureHorsepower)]
		engine, _ := normalize.EngineCode(fixtureVariants[i%len(fixtureVariants)], &hp, normalize.DefaultEngineBands())
		drive := normalize.DriveAWD
		if i%4 == 0 {
			drive = normalize.DriveFWD
		}
		fuel := normalize.FuelPluginHybrid
		switch {
		case i%7 == 0:
			fuel = normalize.FuelDiesel
		case i%7 == 6:
			fuel = normalize.FuelPetrol
		}
		out[i] = &models.CanonicalListing{
			Registration:         fmt.Sprintf("CAR%03d", i),
			Price:                models.Float(float64(fixturePrice(i, year, mileage, hp))),
			ModelYear:            models.Int(year),
			Mileage:              models.Int(mileage),
			Horsepower:           models.Int(hp),
			Age:                  models.Int(2026 - year),
			EngineCode:           engine,
			FuelType:             fuel,
			Transmission:         normalize.TransmissionAutomatic,
			DrivingType:          drive,
			Source:               models.SourceVolvoSelekt,
			ModelVariantOriginal: fixtureVariants[i%len(fixtureVariants)],
		}
	}
	return out
}

func testLogger() *utils.Logger {
	return utils.NewNopLogger()
}
