package oca

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ciclogistica/retiros/internal/engine"
)

const facilityReply = `<?xml version="1.0" encoding="utf-8"?>
<CentrosDeImposicion xmlns="http://tempuri.org/">
  <Centro>
    <IdCentroImposicion>152</IdCentroImposicion>
    <Sucursal>ESCOBAR</Sucursal>
  </Centro>
</CentrosDeImposicion>`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.SubmitURL = srv.URL + "/submit"
	cfg.FacilityURL = srv.URL + "/facility"
	cfg.LabelURL = srv.URL + "/label"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	client.now = func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) }
	return client, srv
}

func TestNewClient_MissingCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.User = ""

	_, err := NewClient(cfg)
	var ce *engine.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
}

func TestClient_Register_FullPipeline(t *testing.T) {
	var submitted map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/facility", func(w http.ResponseWriter, r *http.Request) {
		if cp := r.FormValue("CodigoPostal"); cp != "1001" {
			t.Errorf("expected CodigoPostal=1001, got %q", cp)
		}
		w.Write([]byte(facilityReply))
	})
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("form parse failed: %v", err)
		}
		submitted = map[string]string{}
		for k := range r.PostForm {
			submitted[k] = r.PostForm.Get(k)
		}
		w.Write([]byte(replySuccess))
	})

	client, _ := newTestClient(t, mux)

	tracking, order, err := client.Register(context.Background(), testUnit())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if len(tracking) != 2 || order != "777" {
		t.Errorf("unexpected outcome: tracking=%v order=%q", tracking, order)
	}

	// Exact form-field contract with the registration endpoint.
	if submitted["usr"] != "usuario" || submitted["psw"] != "clave" {
		t.Errorf("credentials not submitted: %v", submitted)
	}
	if submitted["ConfirmarRetiro"] != "True" {
		t.Errorf("expected ConfirmarRetiro=True, got %q", submitted["ConfirmarRetiro"])
	}
	for _, field := range []string{"ArchivoCliente", "ArchivoProceso"} {
		if v, ok := submitted[field]; !ok || v != "" {
			t.Errorf("expected empty %s field to be present", field)
		}
	}
	xmlData := submitted["XML_Datos"]
	if !strings.Contains(xmlData, `nroremito="500"`) {
		t.Errorf("XML_Datos missing envelope content: %q", xmlData)
	}
	if !strings.Contains(xmlData, `idcentroimposicionorigen="152"`) {
		t.Error("resolved facility id must be stamped into the envelope")
	}
}

func TestClient_Register_TransportError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/facility", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(facilityReply))
	})
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	})

	client, _ := newTestClient(t, mux)

	_, _, err := client.Register(context.Background(), testUnit())
	var te *engine.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError on non-2xx status, got %T: %v", err, err)
	}
	if engine.IsBatchFatal(err) {
		t.Error("transport failures are per-unit, never batch-fatal")
	}
}

func TestClient_FacilityID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/facility", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(facilityReply))
	})
	client, _ := newTestClient(t, mux)

	if got := client.FacilityID(context.Background(), "1625"); got != "152" {
		t.Errorf("expected facility 152, got %q", got)
	}
}

func TestClient_FacilityID_FallsBackToDefault(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"garbage body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not xml"))
		}},
		{"missing element", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<CentrosDeImposicion/>`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/facility", tt.handler)
			client, _ := newTestClient(t, mux)

			if got := client.FacilityID(context.Background(), "1625"); got != DefaultFacilityID {
				t.Errorf("expected fallback %q, got %q", DefaultFacilityID, got)
			}
		})
	}
}

func TestClient_Label(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake label")

	mux := http.NewServeMux()
	mux.HandleFunc("/label", func(w http.ResponseWriter, r *http.Request) {
		if got := r.FormValue("IdOrdenRetiro"); got != "777" {
			t.Errorf("expected IdOrdenRetiro=777, got %q", got)
		}
		w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<string xmlns="http://tempuri.org/">` + base64.StdEncoding.EncodeToString(pdf) + `</string>`))
	})
	client, _ := newTestClient(t, mux)

	got, err := client.Label(context.Background(), "777")
	if err != nil {
		t.Fatalf("Label failed: %v", err)
	}
	if string(got) != string(pdf) {
		t.Errorf("label bytes mismatch: %q", got)
	}
}

func TestClient_Label_EmptyPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/label", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<string xmlns="http://tempuri.org/"> </string>`))
	})
	client, _ := newTestClient(t, mux)

	if _, err := client.Label(context.Background(), "777"); err == nil {
		t.Fatal("expected error for empty label payload")
	}
}
