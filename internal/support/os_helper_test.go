package support

import (
	"reflect"
	"testing"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("ESSOPS_TEST_ENV", "value")
	if got := GetEnv("ESSOPS_TEST_ENV", "fallback"); got != "value" {
		t.Fatalf("GetEnv returned %s, want value", got)
	}

	if got := GetEnv("ESSOPS_TEST_ENV_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv returned %s, want fallback", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("ESSOPS_TEST_INT", "42")
	if got := GetEnvInt("ESSOPS_TEST_INT", 7); got != 42 {
		t.Fatalf("GetEnvInt returned %d, want 42", got)
	}

	t.Setenv("ESSOPS_TEST_INT_BAD", "forty-two")
	if got := GetEnvInt("ESSOPS_TEST_INT_BAD", 7); got != 7 {
		t.Fatalf("GetEnvInt with invalid value returned %d, want 7", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("ESSOPS_TEST_BOOL", "true")
	if !GetEnvBool("ESSOPS_TEST_BOOL", false) {
		t.Fatal("GetEnvBool returned false for \"true\"")
	}
	if !GetEnvBool("ESSOPS_TEST_BOOL_MISSING", true) {
		t.Fatal("GetEnvBool ignored fallback")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" example.com, ,matrix.example.com ,")
	want := []string{"example.com", "matrix.example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitList returned %v, want %v", got, want)
	}

	if got := SplitList(""); len(got) != 0 {
		t.Fatalf("SplitList of empty string returned %v", got)
	}
}
