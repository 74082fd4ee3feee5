package trip

import "testing"

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"pending", StatusPending, false},
		{"  Accepted  ", StatusAccepted, false},
		{"IN_PROGRESS", StatusInProgress, false},
		{"cancelled", StatusCancelled, false},
		{"delivered", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseStatus(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseStatus(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatus(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStatusNextIsLinear(t *testing.T) {
	order := []Status{StatusPending, StatusAccepted, StatusLoading, StatusInProgress, StatusCompleted}
	for i := 0; i < len(order)-1; i++ {
		next, ok := order[i].Next()
		if !ok {
			t.Fatalf("%s.Next() reported no successor", order[i])
		}
		if next != order[i+1] {
			t.Fatalf("%s.Next() = %s, want %s", order[i], next, order[i+1])
		}
	}

	for _, terminal := range []Status{StatusCompleted, StatusCancelled} {
		if _, ok := terminal.Next(); ok {
			t.Errorf("%s.Next() should report no successor", terminal)
		}
	}
}

func TestCanTransitionTo(t *testing.T) {
	all := []Status{StatusPending, StatusAccepted, StatusLoading, StatusInProgress, StatusCompleted, StatusCancelled}

	allowed := map[Status]map[Status]bool{
		StatusPending:  {StatusAccepted: true, StatusCancelled: true},
		StatusAccepted: {StatusLoading: true, StatusCancelled: true},
		StatusLoading:  {StatusInProgress: true},
		StatusInProgress: {
			StatusCompleted: true,
		},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusCancelled.Terminal() {
		t.Error("completed and cancelled must be terminal")
	}
	if StatusPending.Terminal() || StatusLoading.Terminal() {
		t.Error("pending and loading must not be terminal")
	}

	for _, s := range []Status{StatusAccepted, StatusLoading, StatusInProgress} {
		if !s.Active() {
			t.Errorf("%s should be active", s)
		}
	}
	if StatusPending.Active() || StatusCompleted.Active() {
		t.Error("pending and completed must not be active")
	}

	if !StatusPending.Cancellable() || !StatusAccepted.Cancellable() {
		t.Error("pending and accepted must be cancellable")
	}
	for _, s := range []Status{StatusLoading, StatusInProgress, StatusCompleted, StatusCancelled} {
		if s.Cancellable() {
			t.Errorf("%s must not be cancellable", s)
		}
	}
}
