package response

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestSuccess_JSONFormat(t *testing.T) {
	resp := Success(map[string]string{"id": "123"})

	jsonBytes, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal response: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if parsed["success"] != true {
		t.Errorf("Expected success=true, got %v", parsed["success"])
	}
	for _, key := range []string{"error", "meta", "message"} {
		if _, ok := parsed[key]; ok {
			t.Errorf("Expected %s field to be omitted", key)
		}
	}
}

func TestSuccessWithMessage(t *testing.T) {
	resp := SuccessWithMessage(nil, "Event deleted")
	if !resp.Success || resp.Message != "Event deleted" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestList(t *testing.T) {
	resp := List([]string{"a", "b"}, 2, "date")
	if resp.Meta == nil || resp.Meta.Total != 2 || resp.Meta.Sort != "date" {
		t.Errorf("unexpected meta %+v", resp.Meta)
	}
}

func TestErrorBuilders(t *testing.T) {
	tests := []struct {
		name     string
		resp     *Response
		wantCode string
		wantMsg  string
	}{
		{"unauthorized default", Unauthorized(""), ErrCodeUnauthorized, "Authentication required"},
		{"forbidden default", Forbidden(""), ErrCodeForbidden, "Access denied"},
		{"not found default", NotFound(""), ErrCodeNotFound, "Resource not found"},
		{"not found custom", NotFound("Event not found"), ErrCodeNotFound, "Event not found"},
		{"conflict default code", Conflict("", "dup"), ErrCodeConflict, "dup"},
		{"conflict custom code", Conflict(ErrCodeRSVPFinal, "final"), ErrCodeRSVPFinal, "final"},
		{"internal default", InternalError(""), ErrCodeInternalError, "An internal error occurred"},
		{"too many requests", TooManyRequests(""), ErrCodeTooManyRequests, "Too many requests, please try again later"},
		{"bad request", BadRequest("bad"), ErrCodeBadRequest, "bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.resp.Success {
				t.Error("Expected success to be false")
			}
			if tt.resp.Error == nil {
				t.Fatal("Expected error to be set")
			}
			if tt.resp.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", tt.resp.Error.Code, tt.wantCode)
			}
			if tt.resp.Error.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", tt.resp.Error.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidationFailed(t *testing.T) {
	resp := ValidationFailed(map[string]string{"invitees": "organizer cannot be invited"})
	if resp.Error.Code != ErrCodeValidationFailed {
		t.Errorf("code = %s", resp.Error.Code)
	}
	if resp.Error.Details["invitees"] == "" {
		t.Error("Expected invitees detail")
	}
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeValidationFailed, http.StatusBadRequest},
		{ErrCodeRSVPFinal, http.StatusConflict},
		{ErrCodeNotInvited, http.StatusForbidden},
		{ErrCodeSessionExpired, http.StatusUnauthorized},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := GetHTTPStatus(tt.code); got != tt.want {
			t.Errorf("GetHTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
