package db

import "testing"

func TestNilHandleGuards(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Fatalf("Close(nil)=%v", err)
	}
	if err := SetTimezone(nil, "UTC"); err != nil {
		t.Fatalf("SetTimezone(nil)=%v", err)
	}
	if err := SetTimezone(&DB{}, "UTC"); err != nil {
		t.Fatalf("SetTimezone(empty)=%v", err)
	}
	if err := AutoMigrate(nil); err != nil {
		t.Fatalf("AutoMigrate(nil)=%v", err)
	}
}
