package internal

import (
	"testing"
)

func TestLookupChannel(t *testing.T) {
	tests := []struct {
		name      string
		wantStart bool
		wantList  bool
		wantErr   bool
	}{
		{name: "customer", wantStart: true},
		{name: "AI", wantStart: true},
		{name: "owner", wantStart: false, wantList: true},
		{name: "admin", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := LookupChannel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LookupChannel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if ch.CanStart() != tt.wantStart {
				t.Errorf("CanStart() = %v, want %v", ch.CanStart(), tt.wantStart)
			}
			if (ch.ListPath != "") != tt.wantList {
				t.Errorf("ListPath = %q", ch.ListPath)
			}
			if ch.SendPath == "" || ch.HistoryPath == "" {
				t.Error("every channel sends and reads history")
			}
			if ch.PollInterval != DefaultPollInterval {
				t.Errorf("PollInterval = %v", ch.PollInterval)
			}
		})
	}
}

func TestChannelNames(t *testing.T) {
	names := ChannelNames()
	want := []string{ChannelAI, ChannelCustomer, ChannelOwner}
	if len(names) != len(want) {
		t.Fatalf("ChannelNames() = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ChannelNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
