package repository

import (
	"encoding/json"
	"strings"
	"testing"

	"medibook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildSearchFilterEmpty(t *testing.T) {
	filter := buildSearchFilter("", "")

	if len(filter) != 0 {
		t.Errorf("no criteria must produce an empty filter, got %v", filter)
	}
}

func TestBuildSearchFilterSpecialtyExactInsensitive(t *testing.T) {
	filter := buildSearchFilter("", "cardiology")

	regex, ok := filter["specialty"].(primitive.Regex)
	if !ok {
		t.Fatalf("expected specialty regex, got %T", filter["specialty"])
	}
	if regex.Pattern != "^cardiology$" {
		t.Errorf("specialty must be an anchored exact match, got %q", regex.Pattern)
	}
	if regex.Options != "i" {
		t.Errorf("specialty match must be case-insensitive, got options %q", regex.Options)
	}
	if _, ok := filter["$or"]; ok {
		t.Error("specialty-only filter must not carry a free-text $or group")
	}
}

func TestBuildSearchFilterFreeTextORsOverTextFields(t *testing.T) {
	filter := buildSearchFilter("apollo", "")

	or, ok := filter["$or"].([]bson.M)
	if !ok {
		t.Fatalf("expected $or group, got %T", filter["$or"])
	}

	wantFields := map[string]bool{
		"name":              false,
		"hospital_name":     false,
		"hospital_location": false,
		"specialty":         false,
	}
	for _, clause := range or {
		for field, value := range clause {
			regex, ok := value.(primitive.Regex)
			if !ok {
				t.Fatalf("clause %s is not a regex: %T", field, value)
			}
			if regex.Pattern != "apollo" || regex.Options != "i" {
				t.Errorf("clause %s must substring-match case-insensitively, got %q/%q",
					field, regex.Pattern, regex.Options)
			}
			wantFields[field] = true
		}
	}
	for field, seen := range wantFields {
		if !seen {
			t.Errorf("free text must match against %s", field)
		}
	}
}

func TestBuildSearchFilterCombinesWithAND(t *testing.T) {
	filter := buildSearchFilter("apollo", "cardiology")

	if _, ok := filter["specialty"]; !ok {
		t.Error("combined filter must keep the specialty criterion")
	}
	if _, ok := filter["$or"]; !ok {
		t.Error("combined filter must keep the free-text $or group")
	}
	// Top-level keys AND together in a Mongo filter document.
	if len(filter) != 2 {
		t.Errorf("expected exactly 2 ANDed criteria, got %d: %v", len(filter), filter)
	}
}

func TestBuildSearchFilterEscapesRegexMetacharacters(t *testing.T) {
	filter := buildSearchFilter("c++ (clinic)", "")

	or := filter["$or"].([]bson.M)
	regex := or[0]["name"].(primitive.Regex)
	if regex.Pattern == "c++ (clinic)" {
		t.Error("free text must be quoted, not used as a raw regex")
	}
	if !strings.Contains(regex.Pattern, `\+\+`) {
		t.Errorf("expected escaped metacharacters, got %q", regex.Pattern)
	}
}

func TestCredentialFieldsNeverSerialize(t *testing.T) {
	doctor := model.Doctor{
		Name:         "Dr. Asha Rao",
		Specialty:    "cardiology",
		Email:        "asha@example.com",
		PasswordHash: "bcrypt$secret",
	}

	data, err := json.Marshal(doctor)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	body := string(data)
	for _, leaked := range []string{"asha@example.com", "bcrypt$secret", `"email"`, `"password_hash"`} {
		if strings.Contains(body, leaked) {
			t.Errorf("serialized doctor leaks %s: %s", leaked, body)
		}
	}
}

func TestSensitiveProjectionExcludesCredentials(t *testing.T) {
	for _, field := range []string{"email", "password_hash"} {
		excluded, ok := sensitiveProjection[field]
		if !ok {
			t.Errorf("projection must mention %s", field)
			continue
		}
		if excluded != 0 {
			t.Errorf("projection must exclude %s, got %v", field, excluded)
		}
	}
}
