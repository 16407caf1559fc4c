package integration__test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
)

func TestModerationIntegration_DecisionPipeline(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)

	defer resetDB(t, pool)

	seedUser(t, pool, "verifier@example.com", "Vera Verifier", "verifier")
	studentID := seedUser(t, pool, "student@example.com", "Stu Student", "student")
	deptID := seedDepartment(t, pool, "CS", "Computer Science")

	studentToken := loginAs(t, router, "student@example.com")
	verifierToken := loginAs(t, router, "verifier@example.com")

	materialID := createLinkMaterial(t, router, studentToken, deptID, "Operating Systems Notes")

	// pending material is invisible to anonymous listings
	w, _ := doRequest(router, http.MethodGet, "/api/v1/materials", "")

	if w.Code != http.StatusOK {
		t.Fatalf("anonymous list got status %d, body=%s", w.Code, w.Body.String())
	}

	var anonList materialListEnvelope
	mustReadJSON(t, w, &anonList)

	if anonList.Total != 0 {
		t.Fatalf("anonymous list of pending material: total = %d, want 0", anonList.Total)
	}

	// and anonymous single reads 404 rather than leaking its existence
	w, _ = doRequest(router, http.MethodGet, "/api/v1/materials/"+materialID, "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("anonymous get pending got status %d, want %d", w.Code, http.StatusNotFound)
	}

	// the uploader still sees their own pending record
	w2 := doAuthed(router, http.MethodGet, "/api/v1/materials/"+materialID, "", studentToken)

	if w2.Code != http.StatusOK {
		t.Fatalf("uploader get pending got status %d, body=%s", w2.Code, w2.Body.String())
	}

	// the queue is verifier-only
	w2 = doAuthed(router, http.MethodGet, "/api/v1/moderation/queue", "", studentToken)

	if w2.Code != http.StatusForbidden {
		t.Fatalf("student queue got status %d, want %d", w2.Code, http.StatusForbidden)
	}

	w2 = doAuthed(router, http.MethodGet, "/api/v1/moderation/queue", "", verifierToken)

	if w2.Code != http.StatusOK {
		t.Fatalf("verifier queue got status %d, body=%s", w2.Code, w2.Body.String())
	}

	var queue materialListEnvelope
	mustReadJSON(t, w2, &queue)

	if queue.Total != 1 || len(queue.Materials) != 1 || queue.Materials[0].ID != materialID {
		t.Fatalf("queue = %+v, want the one pending material", queue)
	}

	// approve it
	w2 = doAuthed(router, http.MethodPost, "/api/v1/moderation/"+materialID+"/decision",
		`{"decision":"approve","note":"looks complete"}`, verifierToken)

	if w2.Code != http.StatusOK {
		t.Fatalf("decision got status %d, body=%s", w2.Code, w2.Body.String())
	}

	var decided materialEnvelope
	mustReadJSON(t, w2, &decided)

	if decided.Material.ReviewStatus != "approved" {
		t.Fatalf("reviewStatus = %s, want approved", decided.Material.ReviewStatus)
	}

	// a second decision must lose and write nothing
	w2 = doAuthed(router, http.MethodPost, "/api/v1/moderation/"+materialID+"/decision",
		`{"decision":"reject","note":"too late"}`, verifierToken)

	if w2.Code != http.StatusConflict {
		t.Fatalf("second decision got status %d, want %d, body=%s", w2.Code, http.StatusConflict, w2.Body.String())
	}

	var conflictErr apiErrorResponse
	_ = json.Unmarshal(w2.Body.Bytes(), &conflictErr)

	if conflictErr.Error.Code != "invalid_state" {
		t.Fatalf("second decision code = %s, want invalid_state", conflictErr.Error.Code)
	}

	var decisionAudits int

	err := pool.QueryRow(context.Background(), `
		SELECT COUNT(*) FROM audit_log
		WHERE target_type = 'material'
		  AND target_id = $1
		  AND action IN ('material_approved', 'material_rejected')
	`, materialID).Scan(&decisionAudits)
	if err != nil {
		t.Fatalf("failed to count decision audit entries: %v", err)
	}

	if decisionAudits != 1 {
		t.Fatalf("decision audit entries = %d, want exactly 1", decisionAudits)
	}

	// exactly one outbox row for the uploader
	var notifs int

	err = pool.QueryRow(context.Background(), `
		SELECT COUNT(*) FROM notifications WHERE recipient_id = $1
	`, studentID).Scan(&notifs)
	if err != nil {
		t.Fatalf("failed to count notifications: %v", err)
	}

	if notifs != 1 {
		t.Fatalf("notifications = %d, want 1", notifs)
	}

	// approved material is now publicly listed
	w, _ = doRequest(router, http.MethodGet, "/api/v1/materials", "")

	mustReadJSON(t, w, &anonList)

	if anonList.Total != 1 || len(anonList.Materials) != 1 || anonList.Materials[0].ID != materialID {
		t.Fatalf("anonymous list after approval = %+v, want the approved material", anonList)
	}
}

func TestModerationIntegration_ConcurrentDecides_ExactlyOneWins(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)

	defer resetDB(t, pool)

	seedUser(t, pool, "v1@example.com", "Verifier One", "verifier")
	seedUser(t, pool, "v2@example.com", "Verifier Two", "verifier")
	seedUser(t, pool, "uploader@example.com", "Up Loader", "student")
	deptID := seedDepartment(t, pool, "EE", "Electrical Engineering")

	uploaderToken := loginAs(t, router, "uploader@example.com")
	token1 := loginAs(t, router, "v1@example.com")
	token2 := loginAs(t, router, "v2@example.com")

	materialID := createLinkMaterial(t, router, uploaderToken, deptID, "Signals Cheat Sheet")

	type attempt struct {
		token string
		body  string
	}

	attempts := []attempt{
		{token: token1, body: `{"decision":"approve"}`},
		{token: token2, body: `{"decision":"reject","note":"duplicate"}`},
	}

	start := make(chan struct{})
	codes := make([]int, len(attempts))

	var wg sync.WaitGroup

	for i, a := range attempts {
		wg.Add(1)

		go func(i int, a attempt) {
			defer wg.Done()

			<-start

			w := doAuthed(router, http.MethodPost, "/api/v1/moderation/"+materialID+"/decision", a.body, a.token)
			codes[i] = w.Code
		}(i, a)
	}

	close(start)
	wg.Wait()

	var wins, conflicts int

	for _, code := range codes {
		switch code {
		case http.StatusOK:
			wins++
		case http.StatusConflict:
			conflicts++
		default:
			t.Fatalf("unexpected status %d from concurrent decide, codes=%v", code, codes)
		}
	}

	if wins != 1 || conflicts != 1 {
		t.Fatalf("concurrent decides: wins=%d conflicts=%d, want exactly one winner", wins, conflicts)
	}

	var decisionAudits int

	err := pool.QueryRow(context.Background(), `
		SELECT COUNT(*) FROM audit_log
		WHERE target_type = 'material'
		  AND target_id = $1
		  AND action IN ('material_approved', 'material_rejected')
	`, materialID).Scan(&decisionAudits)
	if err != nil {
		t.Fatalf("failed to count decision audit entries: %v", err)
	}

	if decisionAudits != 1 {
		t.Fatalf("decision audit entries = %d, want exactly 1", decisionAudits)
	}

	var status string

	err = pool.QueryRow(context.Background(), `SELECT review_status FROM materials WHERE id = $1`, materialID).Scan(&status)
	if err != nil {
		t.Fatalf("failed to read material status: %v", err)
	}

	if status == "pending" {
		t.Fatalf("material still pending after a winning decision")
	}
}

func TestModerationIntegration_ResubmitFlow(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)

	defer resetDB(t, pool)

	seedUser(t, pool, "verifier@example.com", "Vera Verifier", "verifier")
	seedUser(t, pool, "owner@example.com", "Owner Student", "student")
	seedUser(t, pool, "other@example.com", "Other Student", "student")
	deptID := seedDepartment(t, pool, "MA", "Mathematics")

	ownerToken := loginAs(t, router, "owner@example.com")
	otherToken := loginAs(t, router, "other@example.com")
	verifierToken := loginAs(t, router, "verifier@example.com")

	materialID := createLinkMaterial(t, router, ownerToken, deptID, "Linear Algebra Summary")

	// resubmitting a pending material is a state error
	w := doAuthed(router, http.MethodPost, "/api/v1/materials/"+materialID+"/resubmit", "", ownerToken)

	if w.Code != http.StatusConflict {
		t.Fatalf("resubmit pending got status %d, want %d, body=%s", w.Code, http.StatusConflict, w.Body.String())
	}

	// reject it
	w = doAuthed(router, http.MethodPost, "/api/v1/moderation/"+materialID+"/decision",
		`{"decision":"reject","note":"missing chapters"}`, verifierToken)

	if w.Code != http.StatusOK {
		t.Fatalf("reject got status %d, body=%s", w.Code, w.Body.String())
	}

	// someone else cannot resubmit it
	w = doAuthed(router, http.MethodPost, "/api/v1/materials/"+materialID+"/resubmit", "", otherToken)

	if w.Code != http.StatusForbidden {
		t.Fatalf("resubmit by non-uploader got status %d, want %d", w.Code, http.StatusForbidden)
	}

	// the uploader can
	w = doAuthed(router, http.MethodPost, "/api/v1/materials/"+materialID+"/resubmit", "", ownerToken)

	if w.Code != http.StatusOK {
		t.Fatalf("resubmit got status %d, body=%s", w.Code, w.Body.String())
	}

	var env materialEnvelope
	mustReadJSON(t, w, &env)

	if env.Material.ReviewStatus != "pending" {
		t.Fatalf("reviewStatus after resubmit = %s, want pending", env.Material.ReviewStatus)
	}

	// and it is back in the queue
	w = doAuthed(router, http.MethodGet, fmt.Sprintf("/api/v1/moderation/queue?departmentId=%s", deptID), "", verifierToken)

	if w.Code != http.StatusOK {
		t.Fatalf("queue got status %d, body=%s", w.Code, w.Body.String())
	}

	var queue materialListEnvelope
	mustReadJSON(t, w, &queue)

	if queue.Total != 1 {
		t.Fatalf("queue total after resubmit = %d, want 1", queue.Total)
	}
}
