package api

import (
	"context"
	"encoding/json"
	"testing"
)

func TestIsAuthenticated(t *testing.T) {
	tests := []struct {
		name   string
		client *Client
		want   bool
	}{
		{name: "with token", client: New("tok"), want: true},
		{name: "empty token", client: New(""), want: false},
		{name: "nil client", client: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.client.IsAuthenticated(); got != tt.want {
				t.Errorf("IsAuthenticated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetProfile(t *testing.T) {
	server := NewMockServer()
	defer server.Close()

	server.SetProfile(&Profile{ID: "currentUser", Fullname: "Alice", Email: "alice@example.com"})

	client := NewWithBaseURL("tok", server.URL)
	p, err := client.GetProfile(context.Background())
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if p.Fullname != "Alice" || p.Email != "alice@example.com" {
		t.Errorf("profile = %+v, want Alice/alice@example.com", p)
	}
}

func TestGetProfileUnauthenticated(t *testing.T) {
	server := NewMockServer()
	defer server.Close()

	client := NewWithBaseURL("", server.URL)
	if _, err := client.GetProfile(context.Background()); err == nil {
		t.Error("GetProfile without token succeeded, want error")
	}
}

func TestUpdateProfile(t *testing.T) {
	server := NewMockServer()
	defer server.Close()

	client := NewWithBaseURL("tok", server.URL)
	updated, err := client.UpdateProfile(context.Background(), &Profile{ID: "currentUser", Fullname: "Bob"})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated.Fullname != "Bob" {
		t.Errorf("updated.Fullname = %q, want Bob", updated.Fullname)
	}

	p, err := client.GetProfile(context.Background())
	if err != nil {
		t.Fatalf("GetProfile after update failed: %v", err)
	}
	if p.Fullname != "Bob" {
		t.Errorf("stored fullname = %q, want Bob", p.Fullname)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	server := NewMockServer()
	defer server.Close()

	client := NewWithBaseURL("tok", server.URL)
	ctx := context.Background()

	created, err := client.AddRecord(ctx, &Record{
		ID:        "r1",
		Score:     80,
		Timestamp: 1724500000000,
		Details:   json.RawMessage(`{"source":"scan"}`),
	})
	if err != nil {
		t.Fatalf("AddRecord failed: %v", err)
	}
	if created.ID != "r1" || created.Score != 80 {
		t.Errorf("created = %+v, want r1/80", created)
	}

	records, err := client.ListRecords(ctx, 100, 0)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "r1" {
		t.Fatalf("records = %+v, want one record r1", records)
	}

	updated, err := client.UpdateRecord(ctx, "r1", &Record{Score: 90})
	if err != nil {
		t.Fatalf("UpdateRecord failed: %v", err)
	}
	if updated.Score != 90 {
		t.Errorf("updated.Score = %v, want 90", updated.Score)
	}

	if err := client.DeleteRecord(ctx, "r1"); err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}
	records, err = client.ListRecords(ctx, 100, 0)
	if err != nil {
		t.Fatalf("ListRecords after delete failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records after delete = %+v, want empty", records)
	}
}

func TestDeleteRecords(t *testing.T) {
	server := NewMockServer()
	defer server.Close()

	server.AddRecord(Record{ID: "a"})
	server.AddRecord(Record{ID: "b"})
	server.AddRecord(Record{ID: "c"})

	client := NewWithBaseURL("tok", server.URL)
	if err := client.DeleteRecords(context.Background(), []string{"a", "c"}); err != nil {
		t.Fatalf("DeleteRecords failed: %v", err)
	}

	remaining := server.Records()
	if len(remaining) != 1 || remaining[0].ID != "b" {
		t.Errorf("remaining = %+v, want only b", remaining)
	}
}

func TestServerFailureSurfacesAsError(t *testing.T) {
	server := NewMockServer()
	defer server.Close()
	server.SetFailing(true)

	client := NewWithBaseURL("tok", server.URL)
	ctx := context.Background()

	if _, err := client.GetProfile(ctx); err == nil {
		t.Error("GetProfile against failing server succeeded")
	}
	if _, err := client.ListRecords(ctx, 10, 0); err == nil {
		t.Error("ListRecords against failing server succeeded")
	}
	if _, err := client.AddRecord(ctx, &Record{ID: "x"}); err == nil {
		t.Error("AddRecord against failing server succeeded")
	}
}

func TestDeleteRecordNotFound(t *testing.T) {
	server := NewMockServer()
	defer server.Close()

	client := NewWithBaseURL("tok", server.URL)
	if err := client.DeleteRecord(context.Background(), "missing"); err == nil {
		t.Error("DeleteRecord of missing id succeeded, want error")
	}
}
