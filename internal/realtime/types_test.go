package realtime

import "testing"

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantTag string
		wantErr bool
	}{
		{name: "valid", data: `{"type":"inventory_alert","payload":[]}`, wantTag: "inventory_alert"},
		{name: "missing payload", data: `{"type":"ping"}`, wantTag: "ping"},
		{name: "invalid json", data: `{"type":`, wantErr: true},
		{name: "array", data: `[1,2]`, wantErr: true},
		{name: "null", data: `null`, wantErr: true},
		{name: "empty type", data: `{"type":"","payload":1}`, wantErr: true},
		{name: "numeric type", data: `{"type":7,"payload":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := decodeEnvelope([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got envelope %+v", env)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env.Type != tt.wantTag {
				t.Errorf("Type = %q, want %q", env.Type, tt.wantTag)
			}
		})
	}
}

func TestEncodeEnvelope(t *testing.T) {
	data, err := encodeEnvelope("waste_tracking", nil)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if string(data) != `{"type":"waste_tracking","payload":null}` {
		t.Errorf("encoded = %s", data)
	}

	if _, err := encodeEnvelope("bad", make(chan int)); err == nil {
		t.Error("expected error for unencodable payload")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		State(42):         "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
