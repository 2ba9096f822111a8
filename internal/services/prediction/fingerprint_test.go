package prediction

import (
	"testing"

	"IEXCast/internal/domain/models"
)

func TestHashSignature(t *testing.T) {
	if got := hashSignature("abc"); got != 96354 {
		t.Fatalf("hash(abc) = %d, want 96354", got)
	}
	if got := hashSignature(""); got != 0 {
		t.Fatalf("hash of empty string = %d, want 0", got)
	}
}

func TestFingerprintConstantDay(t *testing.T) {
	series := buildSeries(96, constant(3.0))
	if got := signature(series); got != "96|01-04-2024|01-04-2024|3.000|3.000|3.000" {
		t.Fatalf("unexpected signature %q", got)
	}
	if got := Fingerprint(series); got != 968715560 {
		t.Fatalf("fingerprint = %d, want 968715560", got)
	}
}

func TestFingerprintIsStable(t *testing.T) {
	a := buildSeries(500, wavy)
	b := buildSeries(500, wavy)
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatalf("identical series must share a fingerprint")
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := buildSeries(300, wavy)
	seed := Fingerprint(base)

	perturb := map[string]func([]models.DataPoint) []models.DataPoint{
		"length": func(s []models.DataPoint) []models.DataPoint { return s[:len(s)-1] },
		"first date": func(s []models.DataPoint) []models.DataPoint {
			s[0].Date = "31-03-2024"
			return s
		},
		"last date": func(s []models.DataPoint) []models.DataPoint {
			s[len(s)-1].Date = "09-04-2024"
			return s
		},
		"first price": func(s []models.DataPoint) []models.DataPoint {
			s[0].MCPKWh += 0.5
			return s
		},
		"middle price": func(s []models.DataPoint) []models.DataPoint {
			s[len(s)/2].MCPKWh += 0.5
			return s
		},
		"last price": func(s []models.DataPoint) []models.DataPoint {
			s[len(s)-1].MCPKWh += 0.5
			return s
		},
	}

	for name, fn := range perturb {
		changed := fn(buildSeries(300, wavy))
		if Fingerprint(changed) == seed {
			t.Errorf("%s: fingerprint did not change", name)
		}
	}
}

func TestFingerprintIgnoresUnsampledPrices(t *testing.T) {
	a := buildSeries(300, wavy)
	b := buildSeries(300, wavy)
	b[10].MCPKWh += 1
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatalf("only the first, middle and last prices take part in the fingerprint")
	}
}

func TestFixed3(t *testing.T) {
	cases := map[float64]string{
		3:         "3.000",
		0:         "0.000",
		2.5:       "2.500",
		0.0625:    "0.063", // exact tie rounds away from zero
		1.0005:    "1.000", // binary value sits just below the tie
		4.12345:   "4.123",
		-0.0625:   "-0.063",
		-0.0001:   "-0.000",
		10.9999:   "11.000",
		123.45678: "123.457",
	}
	for in, want := range cases {
		if got := fixed3(in); got != want {
			t.Errorf("fixed3(%v) = %q, want %q", in, got, want)
		}
	}
}
