package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

const (
	devNodeWeb1ID  = "node_web1_dev_000000000001"
	devNodeWeb2ID  = "node_web2_dev_000000000001"
	devNodeDB1ID   = "node_db1_dev_0000000000001"
	devNodeCacheID = "node_cache1_dev_00000000001"
)

type fixturesFile struct {
	MaintenanceWindows []windowEntry   `yaml:"maintenance_windows"`
	Schedules          []scheduleEntry `yaml:"schedules"`
	EscalationPolicies []policyEntry   `yaml:"escalation_policies"`
	Workflows          []workflowEntry `yaml:"workflows"`
}

type windowEntry struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	Description       string   `yaml:"description"`
	CronExpr          string   `yaml:"cron_expr"`
	DurationSeconds   int      `yaml:"duration_seconds"`
	Timezone          string   `yaml:"timezone"`
	AllowedPriorities []string `yaml:"allowed_priorities"`
}

type scheduleEntry struct {
	ID              string         `yaml:"id"`
	Name            string         `yaml:"name"`
	Description     string         `yaml:"description"`
	CronExpr        string         `yaml:"cron_expr"`
	Timezone        string         `yaml:"timezone"`
	ScriptID        string         `yaml:"script_id"`
	Priority        string         `yaml:"priority"`
	Targets         map[string]any `yaml:"targets"`
	WindowIDs       []string       `yaml:"window_ids"`
	DependsOn       []string       `yaml:"depends_on"`
	JitterSeconds   int            `yaml:"jitter_seconds"`
	MissedJobPolicy string         `yaml:"missed_job_policy"`
	Concurrency     map[string]any `yaml:"concurrency"`
}

type policyEntry struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Tiers       []map[string]any `yaml:"tiers"`
}

type workflowEntry struct {
	ID                 string           `yaml:"id"`
	Name               string           `yaml:"name"`
	Description        string           `yaml:"description"`
	StartStep          string           `yaml:"start_step"`
	EscalationPolicyID string           `yaml:"escalation_policy_id"`
	RollbackEnabled    bool             `yaml:"rollback_enabled"`
	Steps              []map[string]any `yaml:"steps"`
}

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	fmt.Println("Seeding automation database...")

	// --- Nodes ---

	devNodes := []struct {
		id       string
		hostname string
		mesh     string
		groups   []string
		online   bool
	}{
		{devNodeWeb1ID, "web-01.dev.internal", "eu-west", []string{"web"}, true},
		{devNodeWeb2ID, "web-02.dev.internal", "eu-west", []string{"web"}, true},
		{devNodeDB1ID, "db-01.dev.internal", "eu-west", []string{"db"}, true},
		{devNodeCacheID, "cache-01.dev.internal", "us-east", []string{"cache"}, false},
	}

	for _, n := range devNodes {
		fmt.Printf("  Upserting node %s (%s)\n", n.id, n.hostname)
		var lastSeen *time.Time
		if n.online {
			now := time.Now()
			lastSeen = &now
		}
		_, err = pool.Exec(ctx,
			`INSERT INTO nodes (id, hostname, mesh, groups, online, last_seen, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			 ON CONFLICT (id) DO UPDATE SET
			   hostname = EXCLUDED.hostname,
			   mesh = EXCLUDED.mesh,
			   groups = EXCLUDED.groups,
			   online = EXCLUDED.online,
			   last_seen = EXCLUDED.last_seen,
			   updated_at = now()`,
			n.id, n.hostname, n.mesh, n.groups, n.online, lastSeen)
		if err != nil {
			fmt.Fprintf(os.Stderr, "upsert node %s: %v\n", n.id, err)
			os.Exit(1)
		}
	}

	// --- Fixtures from YAML ---

	fmt.Println("  Seeding fixtures from YAML...")
	if err := seedFixtures(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "seed fixtures: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Seed complete!")
	fmt.Println()
	fmt.Println("  Nodes: web-01, web-02, db-01 (eu-west) and cache-01 (us-east, offline)")
	fmt.Println("  Schedules: nightly-cleanup, cert-sync")
	fmt.Println("  Workflow: disk-full-remediation (escalates via default-escalation)")
}

// seedFixtures reads seeds/automation/fixtures.yaml and upserts maintenance
// windows, schedules, escalation policies and workflows.
func seedFixtures(ctx context.Context, pool *pgxpool.Pool) error {
	// Resolve path relative to this source file so it works regardless of cwd.
	_, thisFile, _, _ := runtime.Caller(0)
	yamlPath := filepath.Join(filepath.Dir(thisFile), "fixtures.yaml")

	data, err := os.ReadFile(yamlPath)
	if err != nil {
		return fmt.Errorf("read fixtures.yaml: %w", err)
	}

	var ff fixturesFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return fmt.Errorf("parse fixtures.yaml: %w", err)
	}

	for _, w := range ff.MaintenanceWindows {
		fmt.Printf("    Upserting maintenance window %s (%s)\n", w.ID, w.Name)
		if w.AllowedPriorities == nil {
			w.AllowedPriorities = []string{}
		}
		_, err := pool.Exec(ctx,
			`INSERT INTO maintenance_windows (id, name, description, cron_expr, duration_seconds, timezone, allowed_priorities, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   description = EXCLUDED.description,
			   cron_expr = EXCLUDED.cron_expr,
			   duration_seconds = EXCLUDED.duration_seconds,
			   timezone = EXCLUDED.timezone,
			   allowed_priorities = EXCLUDED.allowed_priorities,
			   updated_at = now()`,
			w.ID, w.Name, w.Description, w.CronExpr, w.DurationSeconds, w.Timezone, w.AllowedPriorities)
		if err != nil {
			return fmt.Errorf("upsert maintenance window %s: %w", w.ID, err)
		}
	}

	for _, s := range ff.Schedules {
		fmt.Printf("    Upserting schedule %s (%s)\n", s.ID, s.Name)
		// Nil slices arrive as SQL NULL, the arrays must stay non-null.
		if s.WindowIDs == nil {
			s.WindowIDs = []string{}
		}
		if s.DependsOn == nil {
			s.DependsOn = []string{}
		}
		if s.Targets == nil {
			s.Targets = map[string]any{}
		}
		if s.Concurrency == nil {
			s.Concurrency = map[string]any{}
		}
		_, err := pool.Exec(ctx,
			`INSERT INTO schedules (id, name, description, cron_expr, timezone, script_id, targets, priority, concurrency, window_ids, depends_on, jitter_seconds, missed_job_policy, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   description = EXCLUDED.description,
			   cron_expr = EXCLUDED.cron_expr,
			   timezone = EXCLUDED.timezone,
			   script_id = EXCLUDED.script_id,
			   targets = EXCLUDED.targets,
			   priority = EXCLUDED.priority,
			   concurrency = EXCLUDED.concurrency,
			   window_ids = EXCLUDED.window_ids,
			   depends_on = EXCLUDED.depends_on,
			   jitter_seconds = EXCLUDED.jitter_seconds,
			   missed_job_policy = EXCLUDED.missed_job_policy,
			   updated_at = now()`,
			s.ID, s.Name, s.Description, s.CronExpr, s.Timezone, s.ScriptID, s.Targets,
			s.Priority, s.Concurrency, s.WindowIDs, s.DependsOn, s.JitterSeconds, s.MissedJobPolicy)
		if err != nil {
			return fmt.Errorf("upsert schedule %s: %w", s.ID, err)
		}
	}

	for _, p := range ff.EscalationPolicies {
		fmt.Printf("    Upserting escalation policy %s (%s)\n", p.ID, p.Name)
		_, err := pool.Exec(ctx,
			`INSERT INTO escalation_policies (id, name, description, tiers, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, now(), now())
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   description = EXCLUDED.description,
			   tiers = EXCLUDED.tiers,
			   updated_at = now()`,
			p.ID, p.Name, p.Description, p.Tiers)
		if err != nil {
			return fmt.Errorf("upsert escalation policy %s: %w", p.ID, err)
		}
	}

	for _, wf := range ff.Workflows {
		fmt.Printf("    Upserting workflow %s (%s)\n", wf.ID, wf.Name)
		var policyID *string
		if wf.EscalationPolicyID != "" {
			policyID = &wf.EscalationPolicyID
		}
		_, err := pool.Exec(ctx,
			`INSERT INTO workflows (id, name, description, start_step, steps, escalation_policy_id, rollback_enabled, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name,
			   description = EXCLUDED.description,
			   start_step = EXCLUDED.start_step,
			   steps = EXCLUDED.steps,
			   escalation_policy_id = EXCLUDED.escalation_policy_id,
			   rollback_enabled = EXCLUDED.rollback_enabled,
			   updated_at = now()`,
			wf.ID, wf.Name, wf.Description, wf.StartStep, wf.Steps, policyID, wf.RollbackEnabled)
		if err != nil {
			return fmt.Errorf("upsert workflow %s: %w", wf.ID, err)
		}
	}

	return nil
}
