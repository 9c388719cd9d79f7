package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

// listenUDP binds a loopback packet listener and returns its address plus
// a reader that yields one datagram per call.
func listenUDP(t *testing.T) (string, func() string) {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	read := func() string {
		buf := make([]byte, 1024)
		if err := pc.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			t.Fatalf("set deadline: %v", err)
		}
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return string(buf[:n])
	}
	return pc.LocalAddr().String(), read
}

func TestClientEmitsLineProtocol(t *testing.T) {
	t.Parallel()

	addr, read := listenUDP(t)
	client, err := NewClient(Config{Enabled: true, Address: addr, Prefix: "creator"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	client.Count("job.transition", 1, map[string]string{"job_type": "enhance", "result": "success"})
	if got, want := read(), "creator.job.transition:1|c|#job_type:enhance,result:success"; got != want {
		t.Fatalf("count line = %q, want %q", got, want)
	}

	client.Gauge("leaderboard.rows", 42, nil)
	if got, want := read(), "creator.leaderboard.rows:42|g"; got != want {
		t.Fatalf("gauge line = %q, want %q", got, want)
	}

	client.Timing("leaderboard.recompute_duration", 1500*time.Millisecond, nil)
	if got, want := read(), "creator.leaderboard.recompute_duration:1500|ms"; got != want {
		t.Fatalf("timing line = %q, want %q", got, want)
	}
}

func TestClientDropsAfterClose(t *testing.T) {
	t.Parallel()

	addr, _ := listenUDP(t)
	client, err := NewClient(Config{Enabled: true, Address: addr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Emitting on a closed client is a no-op, as is closing twice.
	client.Count("ratelimit.denied", 1, nil)
	if err := client.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	var nilClient *Client
	nilClient.Count("ratelimit.denied", 1, nil)
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	// Disabled clients accept emissions without a connection.
	client.Gauge("leaderboard.rows", 1, nil)
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	got := formatTags(map[string]string{
		"period":     "weekly",
		"board_type": "popularity",
		"":           "ignored",
	})
	if want := "|#board_type:popularity,period:weekly"; got != want {
		t.Fatalf("formatTags = %q, want %q", got, want)
	}

	if got := formatTags(nil); got != "" {
		t.Fatalf("formatTags(nil) = %q, want empty", got)
	}
}
