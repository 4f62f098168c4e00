package keyring

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func testManager(t *testing.T, creds map[string][]Credential, proxies []Proxy) *Manager {
	t.Helper()
	return NewManager(creds, proxies, nil)
}

func twoKeys(limit int, w Window) map[string][]Credential {
	return map[string][]Credential{
		"svc": {
			{Service: "svc", Key: "key-aaaaaaaa", Limit: limit, Window: w},
			{Service: "svc", Key: "key-bbbbbbbb", Limit: limit, Window: w},
		},
	}
}

func TestManager_NoCredentials(t *testing.T) {
	m := testManager(t, map[string][]Credential{}, nil)

	if _, err := m.Active("svc"); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Active() err = %v, want ErrNoCredentials", err)
	}
	if m.RecordUse("svc") {
		t.Error("RecordUse() = true with no credentials, want false")
	}
}

func TestManager_RotatesAtThreshold(t *testing.T) {
	m := testManager(t, twoKeys(10, WindowMinute), nil)

	// 9 calls land on key 0.
	for i := 0; i < 9; i++ {
		if !m.RecordUse("svc") {
			t.Fatalf("call %d denied, want permitted", i+1)
		}
	}
	cred, err := m.Active("svc")
	if err != nil {
		t.Fatal(err)
	}
	if cred.Key != "key-aaaaaaaa" {
		t.Fatalf("active key = %s, want key-aaaaaaaa", cred.Key)
	}

	// The 10th call crosses 95% of the budget and must switch keys.
	if !m.RecordUse("svc") {
		t.Fatal("call after threshold denied, want rotation and permit")
	}
	cred, err = m.Active("svc")
	if err != nil {
		t.Fatal(err)
	}
	if cred.Key != "key-bbbbbbbb" {
		t.Errorf("active key = %s, want key-bbbbbbbb after rotation", cred.Key)
	}
}

func TestManager_DeniesWhenAllExhausted(t *testing.T) {
	m := testManager(t, twoKeys(10, WindowMinute), nil)

	permitted := 0
	for i := 0; i < 40; i++ {
		if m.RecordUse("svc") {
			permitted++
		}
	}

	// Rotation lets the pool drain completely before denying.
	if permitted != 20 {
		t.Errorf("permitted = %d, want 20", permitted)
	}

	before, _ := m.Active("svc")
	if m.RecordUse("svc") {
		t.Error("RecordUse() = true with exhausted pool, want false")
	}
	after, _ := m.Active("svc")
	if before.Key != after.Key {
		t.Errorf("active key changed on denial: %s -> %s", before.Key, after.Key)
	}
}

func TestManager_DailyRotationSequence(t *testing.T) {
	creds := map[string][]Credential{
		"svc": {
			{Service: "svc", Key: "key-1aaaaaaa", Limit: 100, Window: WindowDay},
			{Service: "svc", Key: "key-2bbbbbbb", Limit: 100, Window: WindowDay},
			{Service: "svc", Key: "key-3ccccccc", Limit: 100, Window: WindowDay},
		},
	}
	m := testManager(t, creds, nil)

	seen := []int{}
	last := -1
	permitted := 0
	for i := 0; i < 400; i++ {
		if !m.RecordUse("svc") {
			break
		}
		permitted++
		st := m.Status()["svc"]
		if st.ActiveIndex != last {
			seen = append(seen, st.ActiveIndex)
			last = st.ActiveIndex
		}
	}

	want := []int{0, 1, 2}
	if len(seen) != len(want) {
		t.Fatalf("active index sequence = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("active index sequence = %v, want %v", seen, want)
		}
	}

	// 95% of each 100-call budget is spendable before exhaustion.
	if permitted != 285 {
		t.Errorf("permitted = %d, want 285", permitted)
	}
	if m.RecordUse("svc") {
		t.Error("RecordUse() = true after exhaustion, want false")
	}
}

func TestManager_MinuteWindowReset(t *testing.T) {
	m := testManager(t, twoKeys(10, WindowMinute), nil)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	m.slots["svc"].windowStart = now

	for i := 0; i < 5; i++ {
		m.RecordUse("svc")
	}
	if got := m.Status()["svc"].TotalRequests; got != 5 {
		t.Fatalf("count = %d, want 5", got)
	}

	// Mid-window: nothing resets.
	now = now.Add(30 * time.Second)
	if got := m.Status()["svc"].TotalRequests; got != 5 {
		t.Errorf("count after 30s = %d, want 5", got)
	}

	// Elapsed window: slot and per-key counters reset exactly once.
	now = now.Add(31 * time.Second)
	st := m.Status()["svc"]
	if st.TotalRequests != 0 {
		t.Errorf("count after window = %d, want 0", st.TotalRequests)
	}
	for _, k := range st.Keys {
		if k.Used != 0 {
			t.Errorf("key %d usage after window = %d, want 0", k.Index, k.Used)
		}
	}
}

func TestManager_DayWindowResetsAtMidnightUTC(t *testing.T) {
	m := testManager(t, twoKeys(100, WindowDay), nil)

	now := time.Date(2025, 6, 1, 23, 50, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	m.slots["svc"].windowStart = dayStart(now)

	for i := 0; i < 7; i++ {
		m.RecordUse("svc")
	}

	// Still the same calendar day.
	now = time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC)
	if got := m.Status()["svc"].TotalRequests; got != 7 {
		t.Errorf("count before midnight = %d, want 7", got)
	}

	// Past midnight: reset.
	now = time.Date(2025, 6, 2, 0, 0, 1, 0, time.UTC)
	if got := m.Status()["svc"].TotalRequests; got != 0 {
		t.Errorf("count after midnight = %d, want 0", got)
	}
}

func TestManager_MonthWindowResetsOnFirst(t *testing.T) {
	m := testManager(t, twoKeys(100, WindowMonth), nil)

	now := time.Date(2025, 6, 28, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	m.slots["svc"].windowStart = monthStart(now)

	m.RecordUse("svc")
	m.RecordUse("svc")

	now = time.Date(2025, 6, 30, 23, 0, 0, 0, time.UTC)
	if got := m.Status()["svc"].TotalRequests; got != 2 {
		t.Errorf("count within month = %d, want 2", got)
	}

	now = time.Date(2025, 7, 1, 0, 0, 1, 0, time.UTC)
	if got := m.Status()["svc"].TotalRequests; got != 0 {
		t.Errorf("count after month rollover = %d, want 0", got)
	}
}

func TestManager_RotateBackKeepsTrueUsage(t *testing.T) {
	m := testManager(t, twoKeys(10, WindowMinute), nil)

	// Drain key 0 to the threshold, rotate to key 1.
	for i := 0; i < 10; i++ {
		m.RecordUse("svc")
	}
	st := m.Status()["svc"]
	if st.ActiveIndex != 1 {
		t.Fatalf("active index = %d, want 1", st.ActiveIndex)
	}

	// Key 0 must still show its real within-window usage.
	if got := st.Keys[0].Used; got != 9 {
		t.Errorf("key 0 usage = %d, want 9", got)
	}
	if got := st.Keys[1].Used; got != 1 {
		t.Errorf("key 1 usage = %d, want 1", got)
	}
}

func TestManager_ProxyRotation(t *testing.T) {
	proxies := []Proxy{
		{Host: "10.0.0.1", Port: 8080, Username: "u1", Password: "p1"},
		{Host: "10.0.0.2", Port: 8080, Username: "u2", Password: "p2"},
	}
	m := testManager(t, map[string][]Credential{}, proxies)

	u1, ok := m.ProxyURL()
	if !ok {
		t.Fatal("ProxyURL() ok = false, want true")
	}
	if u1 != "http://u1:p1@10.0.0.1:8080" {
		t.Errorf("proxy url = %s", u1)
	}
	u2, _ := m.ProxyURL()
	u3, _ := m.ProxyURL()
	if u2 == u1 {
		t.Error("proxy did not rotate")
	}
	if u3 != u1 {
		t.Errorf("proxy rotation did not wrap: %s != %s", u3, u1)
	}
}

func TestManager_NoProxies(t *testing.T) {
	m := testManager(t, map[string][]Credential{}, nil)
	if _, ok := m.Proxy(); ok {
		t.Error("Proxy() ok = true with empty pool, want false")
	}
}

func TestManager_ConcurrentRecordUse(t *testing.T) {
	creds := map[string][]Credential{
		"svc": {
			{Service: "svc", Key: "key-aaaaaaaa", Limit: 1_000_000, Window: WindowMinute},
		},
	}
	m := testManager(t, creds, nil)

	const goroutines = 16
	const calls = 250

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < calls; i++ {
				if !m.RecordUse("svc") {
					t.Error("RecordUse denied under large budget")
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := m.Status()["svc"].TotalRequests; got != goroutines*calls {
		t.Errorf("total requests = %d, want %d", got, goroutines*calls)
	}
}
