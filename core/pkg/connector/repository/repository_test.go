package repository

import (
	"testing"

	"github.com/madcok-co/conduit/core/pkg/connector/schema"
)

func TestInMemoryRepositoryListGetSaveRemove(t *testing.T) {
	repo := NewInMemory[*schema.Connector]()

	if got := repo.List(); len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}

	c := &schema.Connector{Name: "github"}
	repo.Save("github", c)

	got, ok := repo.Get("github")
	if !ok || got != c {
		t.Fatalf("Get(%q) = (%v, %v), want (%v, true)", "github", got, ok, c)
	}

	names := repo.List()
	if len(names) != 1 || names[0] != "github" {
		t.Fatalf("List() = %v, want [github]", names)
	}

	repo.Remove("github")
	if _, ok := repo.Get("github"); ok {
		t.Fatal("expected entry to be removed")
	}
	if got := repo.List(); len(got) != 0 {
		t.Fatalf("expected empty list after remove, got %v", got)
	}
}

func TestStoreCredentialsAreASubsetOfServices(t *testing.T) {
	store := NewStore()

	store.Services.Save("slack", &schema.Connector{Name: "slack"})
	store.Credentials.Save("slack", &schema.Authentication{Kind: schema.AuthenticationHeader})

	if _, ok := store.Credentials.Get("unknown-service"); ok {
		t.Fatal("credentials must not exist without a matching service key")
	}
	if _, ok := store.Services.Get("slack"); !ok {
		t.Fatal("expected slack service to be present")
	}
}
