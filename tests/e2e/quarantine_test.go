package e2e

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestQuarantineBlocksDispatch verifies that a quarantined node receives no
// jobs from run-now and that clearing the quarantine restores dispatch.
func TestQuarantineBlocksDispatch(t *testing.T) {
	group := uniqueName("e2e-quar")
	nodeID := registerTestNode(t, group+"-node.test", "e2e", []string{group})

	resp, body := httpPost(t, apiURL+"/schedules", map[string]interface{}{
		"name":      uniqueName("quar-sched"),
		"cron_expr": "0 3 * * *",
		"script_id": "script_e2e_noop",
		"targets":   map[string]interface{}{"groups": []string{group}},
	})
	require.Equal(t, 201, resp.StatusCode, "create schedule: %s", body)
	schedID := parseJSON(t, body)["id"].(string)
	t.Cleanup(func() { httpDelete(t, apiURL+"/schedules/"+schedID) })

	// Step 1: Quarantine the node.
	resp, body = httpPut(t, apiURL+"/nodes/"+nodeID+"/quarantine", map[string]interface{}{
		"reason": "e2e isolation test",
	})
	require.Equal(t, 204, resp.StatusCode, "set quarantine: %s", body)
	t.Cleanup(func() { httpDelete(t, apiURL+"/nodes/"+nodeID+"/quarantine") })

	resp, body = httpGet(t, apiURL+"/quarantine?active=true")
	require.Equal(t, 200, resp.StatusCode, body)
	records := parsePaginatedItems(t, body)
	found := false
	for _, rec := range records {
		if id, _ := rec["node_id"].(string); id == nodeID {
			found = true
			require.Equal(t, true, rec["active"])
			require.Equal(t, "e2e isolation test", rec["reason"])
		}
	}
	require.True(t, found, "quarantine record should list the node")

	// Step 2: Run now projects nothing while the node is quarantined.
	resp, body = httpPost(t, apiURL+"/schedules/"+schedID+"/run", nil)
	require.Equal(t, 200, resp.StatusCode, "run now: %s", body)
	created, _ := parseJSON(t, body)["jobs_created"].(float64)
	require.Equal(t, 0, int(created), "quarantined node must not receive jobs")
	t.Logf("run now skipped quarantined node")

	// Step 3: Clear the quarantine and run again.
	resp, body = httpDelete(t, apiURL+"/nodes/"+nodeID+"/quarantine")
	require.Equal(t, 204, resp.StatusCode, "clear quarantine: %s", body)

	resp, body = httpPost(t, apiURL+"/schedules/"+schedID+"/run", nil)
	require.Equal(t, 200, resp.StatusCode, "run now after clear: %s", body)
	created, _ = parseJSON(t, body)["jobs_created"].(float64)
	require.Equal(t, 1, int(created), "cleared node should receive the job")
	t.Logf("run now reached the node after clearing quarantine")

	// Cancel the leftover job.
	resp, body = httpGet(t, fmt.Sprintf("%s/jobs?schedule_id=%s&status=pending", apiURL, schedID))
	require.Equal(t, 200, resp.StatusCode, body)
	for _, j := range parsePaginatedItems(t, body) {
		jobID, _ := j["id"].(string)
		httpPost(t, apiURL+"/jobs/"+jobID+"/cancel", nil)
	}
}
