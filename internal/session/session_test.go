package session

import "testing"

func TestSession(t *testing.T) {
	t.Run("token round trip", func(t *testing.T) {
		s := New("")
		if s.Authenticated() {
			t.Error("empty session should not be authenticated")
		}
		s.SetToken("abc")
		if !s.Authenticated() || s.Token() != "abc" {
			t.Errorf("Token() = %q, want abc", s.Token())
		}
	})

	t.Run("invalidate clears the token and fires callbacks", func(t *testing.T) {
		s := New("abc")
		fired := 0
		s.OnInvalidate(func() { fired++ })

		s.Invalidate()
		if s.Authenticated() {
			t.Error("session still authenticated after Invalidate")
		}
		if fired != 1 {
			t.Errorf("callback fired %d times, want 1", fired)
		}
	})

	t.Run("invalidating an empty session is a no-op", func(t *testing.T) {
		s := New("abc")
		fired := 0
		s.OnInvalidate(func() { fired++ })

		s.Invalidate()
		s.Invalidate()
		s.Invalidate()
		if fired != 1 {
			t.Errorf("callback fired %d times, want 1", fired)
		}
	})

	t.Run("re-authentication arms invalidation again", func(t *testing.T) {
		s := New("abc")
		fired := 0
		s.OnInvalidate(func() { fired++ })

		s.Invalidate()
		s.SetToken("def")
		s.Invalidate()
		if fired != 2 {
			t.Errorf("callback fired %d times, want 2", fired)
		}
	})
}
