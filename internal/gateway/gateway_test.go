package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

type fakeAdapter struct {
	platform   string
	connectErr error
	notifyErr  error
	got        []*Alert
}

func (f *fakeAdapter) Platform() string { return f.platform }

func (f *fakeAdapter) Connect(context.Context) error { return f.connectErr }

func (f *fakeAdapter) Notify(_ context.Context, a *Alert) error {
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.got = append(f.got, a)
	return nil
}

func (f *fakeAdapter) Status() AdapterStatus { return AdapterStatus{Platform: f.platform} }

func (f *fakeAdapter) Close() error { return nil }

func TestConnectAllDropsBrokenAdapters(t *testing.T) {
	gw := NewGateway(zap.NewNop())
	gw.Register(&fakeAdapter{platform: "good"})
	gw.Register(&fakeAdapter{platform: "bad", connectErr: errors.New("nope")})

	err := gw.ConnectAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "connect bad") {
		t.Fatalf("err = %v", err)
	}
	if got := gw.Adapters(); len(got) != 1 || got[0] != "good" {
		t.Fatalf("adapters = %v", got)
	}
	if len(gw.Statuses()) != 1 {
		t.Fatalf("statuses = %v", gw.Statuses())
	}
}

func TestNotifyTargetsPlatforms(t *testing.T) {
	gw := NewGateway(zap.NewNop())
	a := &fakeAdapter{platform: "a"}
	b := &fakeAdapter{platform: "b"}
	gw.Register(a)
	gw.Register(b)

	if err := gw.Notify(context.Background(), &Alert{Text: "x", Platforms: []string{"b"}}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(a.got) != 0 || len(b.got) != 1 {
		t.Fatalf("a=%d b=%d", len(a.got), len(b.got))
	}

	b.notifyErr = errors.New("down")
	if err := gw.Notify(context.Background(), &Alert{Text: "y"}); err == nil {
		t.Fatal("expected failure")
	}
	if len(a.got) != 1 {
		t.Fatalf("healthy adapter skipped: %d", len(a.got))
	}
}

func TestBroadcasterCooldown(t *testing.T) {
	gw := NewGateway(zap.NewNop())
	a := &fakeAdapter{platform: "a"}
	gw.Register(a)
	b := NewBroadcaster(gw, time.Minute, zap.NewNop())
	now := time.Unix(1000, 0)
	b.now = func() time.Time { return now }

	ctx := context.Background()
	b.Alert(ctx, "Ingest is error")
	b.Alert(ctx, "Ingest is error")
	b.Alert(ctx, "Mailer is error")
	now = now.Add(2 * time.Minute)
	b.Alert(ctx, "Ingest is error")

	if len(a.got) != 3 {
		t.Fatalf("sent %d alerts, want 3", len(a.got))
	}
	if a.got[0].Level != LevelError || a.got[0].Time.IsZero() {
		t.Errorf("alert = %+v", a.got[0])
	}
	hist := b.History(2)
	if len(hist) != 2 || hist[1].Alert.Text != "Ingest is error" || hist[1].Targets[0] != "a" {
		t.Errorf("history = %+v", hist)
	}
	if err := b.Send(ctx, &Alert{}); err == nil {
		t.Error("empty alert accepted")
	}
}

func TestSlackAdapter(t *testing.T) {
	var posted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "auth.test"):
			w.Write([]byte(`{"ok":true,"team":"office","user":"bot"}`))
		case strings.HasSuffix(r.URL.Path, "chat.postMessage"):
			posted = r.Form.Get("channel") + "|" + r.Form.Get("text")
			w.Write([]byte(`{"ok":true,"channel":"C1","ts":"1.2"}`))
		default:
			w.Write([]byte(`{"ok":false,"error":"unknown_method"}`))
		}
	}))
	defer srv.Close()

	a := NewSlackAdapter("xoxb-test", "C1", zap.NewNop(), slack.OptionAPIURL(srv.URL+"/"))
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if st := a.Status(); !st.Connected || !strings.Contains(st.Details, "office") {
		t.Fatalf("status = %+v", st)
	}
	if err := a.Notify(context.Background(), &Alert{Level: LevelError, Title: "Down", Text: "Ingest is error"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.HasPrefix(posted, "C1|") || !strings.Contains(posted, "Ingest is error") {
		t.Fatalf("posted = %q", posted)
	}
}

func TestWebhookAdapter(t *testing.T) {
	var got Alert
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	a := NewWebhookAdapter(srv.URL, zap.NewNop())
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := a.Notify(context.Background(), &Alert{Level: LevelWarning, Text: "slow"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.Text != "slow" || got.Level != LevelWarning {
		t.Fatalf("got = %+v", got)
	}

	status = http.StatusBadGateway
	if err := a.Notify(context.Background(), &Alert{Text: "x"}); err == nil {
		t.Fatal("expected failure on 502")
	}
	if a.Status().Error == "" {
		t.Fatal("error not recorded")
	}

	if err := NewWebhookAdapter("", zap.NewNop()).Connect(context.Background()); err == nil {
		t.Fatal("empty url accepted")
	}
}
