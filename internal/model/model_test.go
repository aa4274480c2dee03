package model

import (
	"path/filepath"
	"testing"

	"github.com/dkcore/dk/internal/secret"
)

func TestAddConnectionEncryptsPassword(t *testing.T) {
	m := New()
	key, _ := secret.GenerateKey()
	enc, _ := secret.Open(key)

	conn, err := m.AddConnection("mydb", "mysql://user@host:3306/db", "hunter2", enc)
	if err != nil {
		t.Fatal(err)
	}
	if conn.Password == "hunter2" {
		t.Fatal("expected password to be encrypted at rest")
	}
	plain, err := enc.Decrypt(conn.Password)
	if err != nil || plain != "hunter2" {
		t.Fatalf("decrypt failed: plain=%q err=%v", plain, err)
	}
}

func TestAddConnectionDuplicateRejected(t *testing.T) {
	m := New()
	if _, err := m.AddConnection("mydb", "mysql://user@host:3306/db", "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddConnection("mydb", "mysql://user@host:3306/db", "", nil); err == nil {
		t.Fatal("expected duplicate connection name to be rejected")
	}
}

func TestResolveEndpointRef(t *testing.T) {
	m := New()
	if _, err := m.AddConnection("mydb", "mysql://user@host:3306/db", "", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddEndpoint("customers", "mydb", "customers_table", "customer"); err != nil {
		t.Fatal(err)
	}
	ep, err := m.ResolveEndpoint("::customers", nil)
	if err != nil {
		t.Fatal(err)
	}
	if ep.Database != "db" || ep.Entity != "customers_table" {
		t.Fatalf("got %+v", ep)
	}
}

func TestResolveEndpointDecryptsStoredPassword(t *testing.T) {
	m := New()
	key, _ := secret.GenerateKey()
	enc, _ := secret.Open(key)

	if _, err := m.AddConnection("mydb", "mysql://user@host:3306/db", "hunter2", enc); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddEndpoint("customers", "mydb", "customers_table", "customer"); err != nil {
		t.Fatal(err)
	}

	ep, err := m.ResolveEndpoint("::customers", enc)
	if err != nil {
		t.Fatal(err)
	}
	if ep.Password != "hunter2" {
		t.Fatalf("expected decrypted password, got %q", ep.Password)
	}
}

func TestResolveEndpointMissingKeyForEncryptedPassword(t *testing.T) {
	m := New()
	key, _ := secret.GenerateKey()
	enc, _ := secret.Open(key)

	if _, err := m.AddConnection("mydb", "mysql://user@host:3306/db", "hunter2", enc); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddEndpoint("customers", "mydb", "customers_table", "customer"); err != nil {
		t.Fatal(err)
	}

	if _, err := m.ResolveEndpoint("::customers", nil); err == nil {
		t.Fatal("expected an error when resolving an encrypted password with no encryptor")
	}
}

func TestSaveLoadRoundTripYAML(t *testing.T) {
	m := New()
	if _, err := m.AddConnection("mydb", "mysql://user@host:3306/db", "", nil); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "model.yml")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Meta.Version != ModelVersion {
		t.Fatalf("got version %q", loaded.Meta.Version)
	}
	if _, ok := loaded.Connections["mydb"]; !ok {
		t.Fatal("expected mydb connection to survive round trip")
	}
}

func TestQueryRenderUndefinedVariable(t *testing.T) {
	q := Query{QueryText: "select * from t where id = {{ id }}"}
	if _, err := q.Render(map[string]string{}); err == nil {
		t.Fatal("expected TemplateError for undefined variable")
	}
	got, err := q.Render(map[string]string{"id": "5"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "select * from t where id = 5" {
		t.Fatalf("got %q", got)
	}
}
