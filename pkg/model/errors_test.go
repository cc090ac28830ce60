package model

import "testing"

func TestAPIError_IsUnauthorized(t *testing.T) {
	tests := []struct {
		name string
		err  APIError
		want bool
	}{
		{"401", APIError{Kind: KindHTTP, Status: 401}, true},
		{"403", APIError{Kind: KindHTTP, Status: 403}, true},
		{"404", APIError{Kind: KindHTTP, Status: 404}, false},
		{"transport", APIError{Kind: KindTransport}, false},
		{"client", APIError{Kind: KindClient, Message: "all fields are required"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.IsUnauthorized(); got != tt.want {
				t.Errorf("IsUnauthorized() = %v, want %v", got, tt.want)
			}
		})
	}
}
