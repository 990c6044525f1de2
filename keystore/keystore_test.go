package keystore

import (
	"testing"
)

func TestGenerateListDeleteDuplicate(t *testing.T) {
	s := New()
	if _, err := s.Generate("laptop", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Generate("laptop", true); err == nil {
		t.Fatal("expected DuplicateName error")
	}
	if _, err := s.Generate("phone", false); err != nil {
		t.Fatal(err)
	}

	names := s.List()
	if len(names) != 2 || names[0] != "laptop" || names[1] != "phone" {
		t.Fatalf("List() = %v", names)
	}

	if err := s.Delete("laptop"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("laptop"); err == nil {
		t.Fatal("expected NotFound after delete")
	}
}

func TestExportPublicKeyWorksRegardlessOfExtractable(t *testing.T) {
	s := New()
	if _, err := s.Generate("k", false); err != nil {
		t.Fatal(err)
	}
	line, err := s.ExportPublicKey("k")
	if err != nil {
		t.Fatal(err)
	}
	if line == "" {
		t.Fatal("expected non-empty ssh public key line")
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	s := New()
	if _, err := s.Generate("a", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Generate("b", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Generate("c", false); err != nil { // not exportable, excluded
		t.Fatal(err)
	}

	blob, err := s.Backup("correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}

	fresh := New()
	restored, skipped, err := fresh.Restore(blob, "correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}
	if restored != 2 {
		t.Fatalf("restored = %d, want 2", restored)
	}
	if skipped != 0 {
		t.Fatalf("skipped = %d, want 0", skipped)
	}
	if names := fresh.List(); len(names) != 2 {
		t.Fatalf("List() after restore = %v", names)
	}
}

func TestRestoreSkipsExistingNames(t *testing.T) {
	s := New()
	if _, err := s.Generate("a", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Generate("b", true); err != nil {
		t.Fatal(err)
	}
	blob, err := s.Backup("correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}

	target := New()
	if _, err := target.Generate("a", true); err != nil { // pre-existing, must be skipped
		t.Fatal(err)
	}
	restored, skipped, err := target.Restore(blob, "correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}
	if restored != 1 {
		t.Fatalf("restored = %d, want 1", restored)
	}
	if skipped != 1 {
		t.Fatalf("skipped = %d, want 1", skipped)
	}
}

func TestRestoreWrongPassphraseFails(t *testing.T) {
	s := New()
	if _, err := s.Generate("a", true); err != nil {
		t.Fatal(err)
	}
	blob, err := s.Backup("correct passphrase")
	if err != nil {
		t.Fatal(err)
	}

	fresh := New()
	if _, _, err := fresh.Restore(blob, "wrong passphrase"); err != ErrDecryptionFailed {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestBackupWithNoExportableKeysFails(t *testing.T) {
	s := New()
	if _, err := s.Generate("locked", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Backup("anything"); err != ErrNoExportableKeys {
		t.Fatalf("expected ErrNoExportableKeys, got %v", err)
	}
}
