package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Error   string `json:"error"`
	Details struct {
		JSON   string                `json:"json"`
		Fields []handlers.FieldError `json:"fields"`
	} `json:"details"`
}

func bindRouter() *gin.Engine {
	r := gin.New()
	r.PATCH("/users/:id", func(ctx *gin.Context) {
		var patch user.Patch
		if !handlers.BindJSON(ctx, &patch) {
			return
		}
		ctx.Status(http.StatusOK)
	})
	return r
}

func postBind(t *testing.T, body string) (*httptest.ResponseRecorder, bindErrorResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/users/1", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	bindRouter().ServeHTTP(w, req)

	var resp bindErrorResponse
	if w.Code != http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
		}
	}
	return w, resp
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	body := `{"name":"` + strings.Repeat("a", 256) + `","email":"not-an-email","role":"root"}`
	w, resp := postBind(t, body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}
	if resp.Error != "Invalid request body" {
		t.Fatalf("unexpected error message: %q", resp.Error)
	}

	wantRules := map[string]string{
		"name":  "max",
		"email": "email",
		"role":  "oneof",
	}

	found := map[string]handlers.FieldError{}
	for _, fieldErr := range resp.Details.Fields {
		found[fieldErr.Field] = fieldErr
	}

	for field, rule := range wantRules {
		fieldErr, ok := found[field]
		if !ok {
			t.Fatalf("missing field error for %q: %+v", field, resp.Details.Fields)
		}
		if fieldErr.Rule != rule {
			t.Fatalf("field %q rule mismatch: got %q want %q", field, fieldErr.Rule, rule)
		}
		if fieldErr.Message == "" {
			t.Fatalf("field %q should include a non-empty message", field)
		}
	}
}

func TestBindJSON_TypeMismatch(t *testing.T) {
	w, resp := postBind(t, `{"name":42}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp.Details.JSON != "invalid_json_type" {
		t.Fatalf("expected invalid_json_type, got %q", resp.Details.JSON)
	}
	if len(resp.Details.Fields) != 1 || resp.Details.Fields[0].Field != "name" || resp.Details.Fields[0].Rule != "type" {
		t.Fatalf("unexpected fields: %+v", resp.Details.Fields)
	}
}

func TestBindJSON_SyntaxError(t *testing.T) {
	w, resp := postBind(t, `{"name":`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp.Details.JSON == "" {
		t.Fatalf("expected a json detail, body=%s", w.Body.String())
	}
}

func TestBindJSON_ImmutableFieldsIgnored(t *testing.T) {
	w, _ := postBind(t, `{"id":99,"createdAt":"2000-01-01T00:00:00Z","name":"Ann"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}
}

func TestBindJSON_SingleCharacterNameAccepted(t *testing.T) {
	w, _ := postBind(t, `{"name":"A"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}
}
