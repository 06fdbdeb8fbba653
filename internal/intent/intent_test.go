package intent

import "testing"

func TestExtract_Greetings(t *testing.T) {
	for _, in := range []string{"hi", "Hiii", "hello", "Heyyy!!", "hola.", "HOWDY", "heya , ", "  hey  "} {
		if got := Extract(in); got.Kind != KindGreeting {
			t.Errorf("Extract(%q) = %+v, want greeting", in, got)
		}
	}
}

func TestExtract_GreetingRequiresFullMatch(t *testing.T) {
	got := Extract("hey there")
	if got.Kind == KindGreeting {
		t.Fatal("\"hey there\" must not be classified as a greeting")
	}
	// Falls through to the bare-city guess.
	if got.Kind != KindCityRequest || got.City != "hey there" {
		t.Fatalf("expected bare city guess, got %+v", got)
	}
}

func TestExtract_ExplicitCity(t *testing.T) {
	tests := []struct {
		in   string
		city string
	}{
		{"weather in Accra today please", "accra"},
		{"weather in Accra", "accra"},
		{"what's the weather in Cape Town?", "cape town"},
		{"WEATHER IN nairobi now", "nairobi"},
		{"weather in berlin tomorrow", "berlin"},
		{"is it like weather in lagos looking", "lagos"},
	}
	for _, tt := range tests {
		got := Extract(tt.in)
		if got.Kind != KindCityRequest {
			t.Errorf("Extract(%q) kind = %s, want city request", tt.in, got.Kind)
			continue
		}
		if got.City != tt.city {
			t.Errorf("Extract(%q) city = %q, want %q", tt.in, got.City, tt.city)
		}
	}
}

func TestExtract_ExplicitPhraseWithoutCity(t *testing.T) {
	for _, in := range []string{"weather in", "weather in today please", "weather in 123", "  Weather In  "} {
		if got := Extract(in); got.Kind != KindCityNotDetected {
			t.Errorf("Extract(%q) = %+v, want city not detected", in, got)
		}
	}
}

func TestExtract_BareCityGuess(t *testing.T) {
	tests := []struct {
		in   string
		city string
	}{
		{"tell me the weather for nairobi", "nairobi"},
		{"Berlin", "berlin"},
		{"berlin please", "berlin"},
		{"Accra today", "accra"},
		{"new york now", "new york"},
	}
	for _, tt := range tests {
		got := Extract(tt.in)
		if got.Kind != KindCityRequest || got.City != tt.city {
			t.Errorf("Extract(%q) = %+v, want city %q", tt.in, got, tt.city)
		}
	}
}

func TestExtract_WholeWordsOnly(t *testing.T) {
	// "in", "is" and "me" are noise words but must not be cut out of city names.
	for _, city := range []string{"berlin", "turin", "memphis", "tunis", "isfahan"} {
		got := Extract(city)
		if got.City != city {
			t.Errorf("Extract(%q) city = %q, want unchanged", city, got.City)
		}
	}
}

func TestExtract_CollapsesGaps(t *testing.T) {
	got := Extract("new today york")
	if got.City != "new york" {
		t.Fatalf("expected single space after removal, got %q", got.City)
	}
}

func TestExtract_Unrecognized(t *testing.T) {
	for _, in := range []string{"please", "", "   ", "tell me the weather", "the weather for me today"} {
		if got := Extract(in); got.Kind != KindUnrecognized {
			t.Errorf("Extract(%q) = %+v, want unrecognized", in, got)
		}
	}
}

func TestExtract_UnicodeWordBoundaries(t *testing.T) {
	tests := []struct {
		in   string
		city string
	}{
		{"çin", "çin"},
		{"médinaé", "médinaé"},
		{"zürich today", "zürich"},
		{"tell me the weather for münchen please", "münchen"},
	}
	for _, tt := range tests {
		got := Extract(tt.in)
		if got.Kind != KindCityRequest || got.City != tt.city {
			t.Errorf("Extract(%q) = %+v, want city %q", tt.in, got, tt.city)
		}
	}
}
