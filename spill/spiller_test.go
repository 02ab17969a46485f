/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package spill

import "testing"

func TestCreateDefaultsToLocal(t *testing.T) {
	dir := t.TempDir()
	s, err := Create("", dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*Local); !ok {
		t.Fatalf("expected *Local for an empty kind, got %T", s)
	}
}

func TestCreateUnknownBackend(t *testing.T) {
	if _, err := Create("no-such-backend", "/tmp"); err == nil {
		t.Fatal("expected an error for an unregistered backend kind")
	}
}

func TestRegisterRejectsDuplicateBackend(t *testing.T) {
	const kind = "test-duplicate-backend"
	t.Cleanup(func() { Unregister(kind) })

	factory := func(location string) (Spiller, error) { return NewLocal(location) }
	if !Register(kind, factory) {
		t.Fatal("expected first Register to succeed")
	}
	if Register(kind, factory) {
		t.Fatal("expected second Register of the same kind to fail")
	}
}
