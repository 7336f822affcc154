// File: control/metrics_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"sync"
	"testing"
)

func TestRegistryAddAndGet(t *testing.T) {
	r := NewRegistry()
	if got := r.Get("missing"); got != 0 {
		t.Fatalf("missing key = %d", got)
	}
	r.Add("pipes_active", 3)
	r.Add("pipes_active", -1)
	if got := r.Get("pipes_active"); got != 2 {
		t.Fatalf("pipes_active = %d", got)
	}
	r.Set("pipes_active", 10)
	if got := r.Get("pipes_active"); got != 10 {
		t.Fatalf("after set = %d", got)
	}
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Add("msgs_sent", 5)
	snap := r.Snapshot()
	snap["msgs_sent"] = 999
	if got := r.Get("msgs_sent"); got != 5 {
		t.Fatalf("snapshot mutation leaked: %d", got)
	}
	if _, ok := snap["msgs_sent"]; !ok {
		t.Fatal("snapshot missing key")
	}
}

func TestRegistryUpdatedAdvances(t *testing.T) {
	r := NewRegistry()
	before := r.Updated()
	r.Add("ops", 1)
	if !r.Updated().After(before) {
		t.Fatal("updated time did not advance")
	}
}

func TestRegistryConcurrentAdd(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				r.Add("hits", 1)
			}
		}()
	}
	wg.Wait()
	if got := r.Get("hits"); got != 8000 {
		t.Fatalf("hits = %d", got)
	}
}
