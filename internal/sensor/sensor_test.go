package sensor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const goodSlave = "72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n72 01 4b 46 7f ff 0e 10 57 t=23125\n"

func writeSlave(t *testing.T, dir, device, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, device), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, device, "w1_slave"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseW1Slave(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    float64
		wantErr error
	}{
		{"good", goodSlave, 23.125, nil},
		{"negative", "ff ff : crc=1a YES\nff ff t=-1250\n", -1.25, nil},
		{"crc fail", "72 01 : crc=00 NO\n72 01 t=23125\n", 0, ErrCRC},
		{"one line", "72 01 : crc=57 YES\n", 0, ErrMalformed},
		{"no t", "72 01 : crc=57 YES\n72 01 4b\n", 0, ErrMalformed},
		{"bad number", "72 01 : crc=57 YES\n72 01 t=abc\n", 0, ErrMalformed},
	}

	for _, tt := range tests {
		got, err := ParseW1Slave(tt.in)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("%s: got err %v, want %v", tt.name, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestW1ReaderFahrenheit(t *testing.T) {
	dir := t.TempDir()
	writeSlave(t, dir, "28-01", goodSlave)

	r := W1Reader{Dir: dir, Device: "28-01", Fahrenheit: true}
	got, err := r.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 23.125C = 73.625F, rounded to 73.6
	if got != 73.6 {
		t.Errorf("got %v, want 73.6", got)
	}
}

func TestW1ReaderCelsius(t *testing.T) {
	dir := t.TempDir()
	writeSlave(t, dir, "28-01", goodSlave)

	got, err := W1Reader{Dir: dir, Device: "28-01"}.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 23.1 {
		t.Errorf("got %v, want 23.1", got)
	}
}

func TestW1ReaderMissingDevice(t *testing.T) {
	_, err := W1Reader{Dir: t.TempDir(), Device: "28-missing"}.Read()
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want ErrNotExist", err)
	}
}

func TestW1ReaderDefaultDir(t *testing.T) {
	got := W1Reader{Device: "28-abc"}.Path()
	if got != "/sys/bus/w1/devices/28-abc/w1_slave" {
		t.Errorf("got %q", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{73.6, "73.6"},
		{72, "72"},
		{-0.5, "-0.5"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%v): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

type seqReader struct {
	mu   sync.Mutex
	vals []float64
	errs []error
	n    int
}

func (r *seqReader) Read() (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.n
	r.n++
	if i < len(r.errs) && r.errs[i] != nil {
		return 0, r.errs[i]
	}
	if i < len(r.vals) {
		return r.vals[i], nil
	}
	return r.vals[len(r.vals)-1], nil
}

func TestPollerReadsImmediatelyAndOnInterval(t *testing.T) {
	reader := &seqReader{
		vals: []float64{71.5, 0, 72},
		errs: []error{nil, ErrCRC, nil},
	}

	readings := make(chan string, 8)
	errs := make(chan error, 8)
	p := &Poller{
		Reader:   reader,
		Interval: 5 * time.Millisecond,
		OnRead: func(s string) {
			select {
			case readings <- s:
			default:
			}
		},
		OnError: func(err error) {
			select {
			case errs <- err:
			default:
			}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	if got := <-readings; got != "71.5" {
		t.Errorf("first reading: got %q, want 71.5", got)
	}
	if err := <-errs; !errors.Is(err, ErrCRC) {
		t.Errorf("second poll: got %v, want ErrCRC", err)
	}
	if got := <-readings; got != "72" {
		t.Errorf("third reading: got %q, want 72", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}
