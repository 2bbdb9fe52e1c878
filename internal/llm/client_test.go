package llm

import "testing"

func TestApplyEngagementDefaults(t *testing.T) {
	t.Parallel()

	e := &Engagement{
		Behavioral: 0.8,
		Emotional:  0.6,
		Cognitive:  0.4,
	}

	applyEngagementDefaults(e)

	if e.School != DefaultSchool {
		t.Errorf("school = %q, want %q", e.School, DefaultSchool)
	}

	if e.City != DefaultCity {
		t.Errorf("city = %q, want %q", e.City, DefaultCity)
	}

	if e.Lat != DefaultLat || e.Lon != DefaultLon {
		t.Errorf("coords = (%v, %v), want (%v, %v)", e.Lat, e.Lon, DefaultLat, DefaultLon)
	}

	want := 1.0 - (0.8+0.6+0.4)/3
	if diff := e.RiskScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("risk score = %v, want %v", e.RiskScore, want)
	}
}

func TestApplyEngagementDefaultsKeepsProvidedValues(t *testing.T) {
	t.Parallel()

	e := &Engagement{
		Behavioral: 0.2,
		Emotional:  0.2,
		Cognitive:  0.2,
		RiskScore:  0.9,
		School:     "Escola Municipal",
		City:       "Recife",
		Lat:        -8.05,
		Lon:        -34.9,
	}

	applyEngagementDefaults(e)

	if e.RiskScore != 0.9 {
		t.Errorf("risk score = %v, want 0.9", e.RiskScore)
	}

	if e.School != "Escola Municipal" || e.City != "Recife" {
		t.Errorf("location overwritten: %q / %q", e.School, e.City)
	}
}

func TestNeutralEngagement(t *testing.T) {
	t.Parallel()

	e := NeutralEngagement()

	if e.RiskScore != 0.5 || e.Behavioral != 0.5 || e.Emotional != 0.5 || e.Cognitive != 0.5 {
		t.Errorf("neutral record scores = %+v, want all 0.5", e)
	}

	if len(e.Evidence) == 0 {
		t.Error("neutral record should carry a placeholder observation")
	}
}
