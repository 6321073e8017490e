package lcxapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	ncerr "lcxterm/internal/errors"
	"lcxterm/internal/transport"
)

var testProxies = []Proxy{
	{Id: 1, Desc: "router", LocalIp: "0.0.0.0", LocalPort: 2222, RemoteIp: "192.168.1.1", RemotePort: 22, Status: StatusStarted, Instances: 1},
	{Id: 5, Desc: "lab box", LocalIp: "10.0.0.1", LocalPort: 2323, RemoteIp: "192.168.10.5", RemotePort: 23, Status: StatusStopped},
}

func dashboard(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(PathProxyList, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testProxies) //nolint:errcheck
	})
	mux.HandleFunc(PathProxy, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res := OpResult{Status: StatusStarted}
		switch q.Get("id") {
		case "5":
			res.Id = 5
		case "9":
			res.Id = 9
			res.Result = 2
			res.Status = StatusStopped
			res.ErrMsg = "remote unreachable"
		case "10":
			res.Id = 10
			res.Result = 1
		default:
			http.Error(w, "no such proxy", http.StatusNotFound)
			return
		}
		if q.Get("op") == "stop" {
			res.Status = StatusStopped
		}
		json.NewEncoder(w).Encode(res) //nolint:errcheck
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_List(t *testing.T) {
	srv := dashboard(t)
	c := NewClient(srv.URL, nil, 5*time.Second, nil)

	got, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[1] != testProxies[1] {
		t.Errorf("List = %+v", got)
	}
}

func TestClient_Find(t *testing.T) {
	srv := dashboard(t)
	c := NewClient(srv.URL+"/", nil, 5*time.Second, nil)

	p, err := c.Find(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Desc != "lab box" || p.RemotePort != 23 {
		t.Errorf("Find(5) = %+v", p)
	}

	p, err = c.Find(context.Background(), 42)
	if err != nil || p != nil {
		t.Errorf("Find(42) = %+v, %v; want nil, nil", p, err)
	}
}

func TestClient_StartStop(t *testing.T) {
	srv := dashboard(t)
	c := NewClient(srv.URL, nil, 5*time.Second, nil)

	res, err := c.Start(context.Background(), 5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.Id != 5 || res.Status != StatusStarted {
		t.Errorf("Start = %+v", res)
	}

	res, err = c.Stop(context.Background(), 5)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res.Status != StatusStopped {
		t.Errorf("Stop status = %v", res.Status)
	}
}

func TestClient_StartRejected(t *testing.T) {
	srv := dashboard(t)
	c := NewClient(srv.URL, nil, 5*time.Second, nil)

	res, err := c.Start(context.Background(), 9)
	var pe *ncerr.ProxyOpError
	if !ncerr.As(err, &pe) {
		t.Fatalf("err = %v, want ProxyOpError", err)
	}
	if pe.ID != 9 || pe.Op != "start" || pe.Result != 2 {
		t.Errorf("ProxyOpError = %+v", pe)
	}
	if want := "proxy 9: start failed: remote unreachable"; err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
	if res == nil || res.Status != StatusStopped {
		t.Errorf("result should still be returned, got %+v", res)
	}

	_, err = c.Start(context.Background(), 10)
	if want := "proxy 10: start failed: result code 1"; err == nil || err.Error() != want {
		t.Errorf("err = %v, want %q", err, want)
	}
}

func TestClient_HTTPError(t *testing.T) {
	srv := dashboard(t)
	c := NewClient(srv.URL, nil, 5*time.Second, nil)

	_, err := c.Start(context.Background(), 77)
	var ne *ncerr.NetworkError
	if !ncerr.As(err, &ne) || ne.Op != "request" {
		t.Fatalf("err = %v, want request NetworkError", err)
	}
	if ncerr.IsProxyOp(err) {
		t.Error("HTTP failure is not a proxy command failure")
	}
}

func TestClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>login</html>")) //nolint:errcheck
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil, 5*time.Second, nil).List(context.Background())
	if err == nil {
		t.Fatal("expected decode error")
	}
}

type countingDialer struct {
	transport.TCPDialer
	n atomic.Int32
}

func (d *countingDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	d.n.Add(1)
	return d.TCPDialer.Dial(ctx, network, address)
}

func TestClient_UsesDialer(t *testing.T) {
	srv := dashboard(t)
	d := &countingDialer{}
	c := NewClient(srv.URL, d, 5*time.Second, nil)

	if _, err := c.List(context.Background()); err != nil {
		t.Fatal(err)
	}
	if d.n.Load() == 0 {
		t.Error("requests should go through the supplied dialer")
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusDisabled:  "disabled",
		StatusStopped:   "stopped",
		StatusStarted:   "started",
		StatusConnected: "connected",
		Status(7):       "status(7)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
