package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				org_id VARCHAR(255) NOT NULL DEFAULT '',
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				active BOOLEAN NOT NULL DEFAULT FALSE,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				trigger_config JSONB NOT NULL DEFAULT '{}',
				cooldown_minutes INT NOT NULL DEFAULT 0,
				daily_limit INT NOT NULL DEFAULT 0,
				last_triggered_at TIMESTAMP WITH TIME ZONE,
				triggers_fired_today INT NOT NULL DEFAULT 0,
				trigger_count_day VARCHAR(10) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_org_id ON workflows(org_id);
			CREATE INDEX idx_workflows_active ON workflows(active);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				org_id VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL,
				triggered_by VARCHAR(255) NOT NULL DEFAULT '',
				trigger_data JSONB NOT NULL DEFAULT '{}',
				context JSONB NOT NULL DEFAULT '{}',
				current_node_id VARCHAR(255) NOT NULL DEFAULT '',
				resume_at TIMESTAMP WITH TIME ZONE,
				node_results JSONB NOT NULL DEFAULT '[]',
				error TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_started_at ON executions(started_at);
		`,
	}
}
