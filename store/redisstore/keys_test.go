package redisstore

import (
	"testing"
	"time"
)

func TestMember(t *testing.T) {
	t.Parallel()

	tests := []struct {
		seq  int64
		id   string
		want string
	}{
		{seq: 1, id: "a", want: "0000000000000001:a"},
		{seq: 255, id: "b-c", want: "00000000000000ff:b-c"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()
			got := member(tc.seq, tc.id)
			if got != tc.want {
				t.Fatalf("member(%d, %q) = %q, want %q", tc.seq, tc.id, got, tc.want)
			}
			if id := memberID(got); id != tc.id {
				t.Fatalf("memberID(%q) = %q, want %q", got, id, tc.id)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	s := New(nil, WithPrefix("p"))
	tests := []struct {
		got  string
		want string
	}{
		{got: s.seqKey(), want: "p:seq"},
		{got: s.allKey(), want: "p:events"},
		{got: s.eventKey("x"), want: "p:event:x"},
		{got: s.rootKey("User", "1|2"), want: "p:root:User:1|2"},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Fatalf("key = %q, want %q", tc.got, tc.want)
		}
	}
}

func TestScore(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 1, 0, 0, 0, 1500, time.FixedZone("x", 3600))
	if got, want := score(ts), float64(ts.UnixMicro()); got != want {
		t.Fatalf("score() = %v, want %v", got, want)
	}
}
