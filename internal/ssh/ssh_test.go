package ssh

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		want       *Target
		wantErr    bool
	}{
		{"plain", "ssh AbC123@nyc1.tmate.io", &Target{User: "AbC123", Host: "nyc1.tmate.io"}, false},
		{"attached port", "ssh -p2222 AbC123@lon1.tmate.io", &Target{User: "AbC123", Host: "lon1.tmate.io", Port: 2222}, false},
		{"separate port", "ssh -p 2222 u@h", &Target{User: "u", Host: "h", Port: 2222}, false},
		{"surrounding space", "  ssh u@h\n", &Target{User: "u", Host: "h"}, false},
		{"empty", "", nil, true},
		{"not ssh", "mosh u@h", nil, true},
		{"no destination", "ssh -p 22", nil, true},
		{"no user", "ssh @h", nil, true},
		{"two destinations", "ssh a@h b@h", nil, true},
		{"bad port", "ssh -pabc u@h", nil, true},
		{"port out of range", "ssh -p 70000 u@h", nil, true},
		{"dangling port flag", "ssh u@h -p", nil, true},
		{"other option", "ssh -o ProxyCommand=evil u@h", nil, true},
		{"unbalanced quote", "ssh 'u@h", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.credential)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.credential, err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.credential, got, tt.want)
			}
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.StrictHostKeyCheck {
		t.Error("StrictHostKeyCheck should be true by default")
	}
	if !opts.RequestTTY {
		t.Error("RequestTTY should be true by default")
	}
	if opts.ConnectTimeout != DefaultConnectTimeout {
		t.Errorf("ConnectTimeout = %d, want %d", opts.ConnectTimeout, DefaultConnectTimeout)
	}
}

func TestTargetArgs(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		opts   Options
		want   []string
	}{
		{
			name:   "defaults",
			target: Target{User: "u", Host: "h"},
			opts:   DefaultOptions(),
			want:   []string{"-o", "ConnectTimeout=10", "-t", "u@h"},
		},
		{
			name:   "port and lax host keys",
			target: Target{User: "u", Host: "h", Port: 2222},
			opts:   Options{KnownHostsFile: "/dev/null"},
			want: []string{"-p", "2222", "-o", "StrictHostKeyChecking=no",
				"-o", "UserKnownHostsFile=/dev/null", "u@h"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.target.Args(tt.opts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDestination(t *testing.T) {
	target := Target{User: "AbC", Host: "nyc1.tmate.io"}
	if got := target.Destination(); got != "AbC@nyc1.tmate.io" {
		t.Errorf("Destination() = %q", got)
	}
}
