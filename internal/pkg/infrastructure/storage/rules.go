package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hortelano/iot-greenhouse-mgmt/pkg/types"
	"github.com/jackc/pgx/v5"
)

func ruleDataColumn(rule types.Rule) string {
	data, _ := json.Marshal(rule)

	var m map[string]any
	json.Unmarshal(data, &m)

	delete(m, "id")
	delete(m, "enabled")
	delete(m, "priority")
	delete(m, "cooldownSeconds")
	delete(m, "maxExecutionsPerHour")
	delete(m, "conditions")
	delete(m, "actions")
	delete(m, "lastTriggeredAt")
	delete(m, "triggerCount")
	delete(m, "createdAt")

	data, _ = json.Marshal(m)
	return string(data)
}

func (s *Storage) AddRule(ctx context.Context, rule types.Rule) error {
	conditions, _ := json.Marshal(rule.Conditions)
	actions, _ := json.Marshal(rule.Actions)

	args := pgx.NamedArgs{
		"rule_id":      rule.ID,
		"enabled":      rule.Enabled,
		"priority":     rule.Priority,
		"cooldown":     rule.CooldownSeconds,
		"max_per_hour": rule.MaxExecutionsPerHour,
		"conditions":   string(conditions),
		"actions":      string(actions),
		"data":         ruleDataColumn(rule),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO rules (rule_id, enabled, priority, cooldown, max_per_hour, conditions, actions, data)
		VALUES (@rule_id, @enabled, @priority, @cooldown, @max_per_hour, @conditions, @actions, @data)
	`, args)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}

	return nil
}

func (s *Storage) UpdateRule(ctx context.Context, rule types.Rule) error {
	conditions, _ := json.Marshal(rule.Conditions)
	actions, _ := json.Marshal(rule.Actions)

	args := pgx.NamedArgs{
		"rule_id":      rule.ID,
		"enabled":      rule.Enabled,
		"priority":     rule.Priority,
		"cooldown":     rule.CooldownSeconds,
		"max_per_hour": rule.MaxExecutionsPerHour,
		"conditions":   string(conditions),
		"actions":      string(actions),
		"data":         ruleDataColumn(rule),
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE rules
		SET enabled = @enabled, priority = @priority, cooldown = @cooldown,
		    max_per_hour = @max_per_hour, conditions = @conditions,
		    actions = @actions, data = @data, modified_on = CURRENT_TIMESTAMP
		WHERE rule_id = @rule_id AND deleted = FALSE
	`, args)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

func (s *Storage) DeleteRule(ctx context.Context, ruleID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rules
		SET deleted = TRUE, deleted_on = CURRENT_TIMESTAMP, enabled = FALSE
		WHERE rule_id = $1 AND deleted = FALSE
	`, ruleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

func (s *Storage) SetRuleEnabled(ctx context.Context, ruleID string, enabled bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rules
		SET enabled = $2, modified_on = CURRENT_TIMESTAMP
		WHERE rule_id = $1 AND deleted = FALSE
	`, ruleID, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

// RecordRuleTriggered stamps last_triggered and bumps the counter in a
// single statement so concurrent evaluators never lose an increment.
func (s *Storage) RecordRuleTriggered(ctx context.Context, ruleID string, triggeredAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE rules
		SET last_triggered = $2, trigger_count = trigger_count + 1
		WHERE rule_id = $1 AND deleted = FALSE
	`, ruleID, triggeredAt.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}

	return nil
}

func (s *Storage) GetRule(ctx context.Context, conditions ...ConditionFunc) (types.Rule, error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	query := fmt.Sprintf(`
		SELECT rule_id, enabled, priority, cooldown, max_per_hour, conditions, actions, last_triggered, trigger_count, data, created_on
		FROM rules
		WHERE %s AND deleted = FALSE
	`, condition.Where(""))

	rule, err := scanRule(s.pool.QueryRow(ctx, query, args))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Rule{}, ErrNoRows
		}
		return types.Rule{}, err
	}

	return rule, nil
}

func (s *Storage) QueryRules(ctx context.Context, conditions ...ConditionFunc) (types.Collection[types.Rule], error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	offsetLimit, offset, limit := condition.OffsetLimit(100)
	args["_offset"] = offset
	args["_limit"] = limit

	query := fmt.Sprintf(`
		SELECT rule_id, enabled, priority, cooldown, max_per_hour, conditions, actions, last_triggered, trigger_count, data, created_on, count(*) OVER () AS total
		FROM rules
		WHERE %s AND deleted = FALSE
		%s%s
	`, condition.Where(""), condition.OrderBy("priority DESC, last_triggered ASC NULLS FIRST, rule_id"), offsetLimit)

	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return types.Collection[types.Rule]{}, err
	}
	defer rows.Close()

	rules := make([]types.Rule, 0)
	var total uint64

	for rows.Next() {
		var rule types.Rule
		var conditionsJSON, actionsJSON, data json.RawMessage
		var lastTriggered *time.Time

		err := rows.Scan(&rule.ID, &rule.Enabled, &rule.Priority, &rule.CooldownSeconds,
			&rule.MaxExecutionsPerHour, &conditionsJSON, &actionsJSON, &lastTriggered,
			&rule.TriggerCount, &data, &rule.CreatedAt, &total)
		if err != nil {
			return types.Collection[types.Rule]{}, err
		}

		err = hydrateRule(&rule, conditionsJSON, actionsJSON, data, lastTriggered)
		if err != nil {
			return types.Collection[types.Rule]{}, err
		}

		rules = append(rules, rule)
	}

	return types.Collection[types.Rule]{
		Data:       rules,
		Count:      uint64(len(rules)),
		Offset:     uint64(offset),
		Limit:      uint64(limit),
		TotalCount: total,
	}, nil
}

func scanRule(row pgx.Row) (types.Rule, error) {
	var rule types.Rule
	var conditionsJSON, actionsJSON, data json.RawMessage
	var lastTriggered *time.Time

	err := row.Scan(&rule.ID, &rule.Enabled, &rule.Priority, &rule.CooldownSeconds,
		&rule.MaxExecutionsPerHour, &conditionsJSON, &actionsJSON, &lastTriggered,
		&rule.TriggerCount, &data, &rule.CreatedAt)
	if err != nil {
		return types.Rule{}, err
	}

	err = hydrateRule(&rule, conditionsJSON, actionsJSON, data, lastTriggered)
	if err != nil {
		return types.Rule{}, err
	}

	return rule, nil
}

func hydrateRule(rule *types.Rule, conditionsJSON, actionsJSON, data json.RawMessage, lastTriggered *time.Time) error {
	err := json.Unmarshal(data, rule)
	if err != nil {
		return err
	}

	err = json.Unmarshal(conditionsJSON, &rule.Conditions)
	if err != nil {
		return err
	}

	err = json.Unmarshal(actionsJSON, &rule.Actions)
	if err != nil {
		return err
	}

	if lastTriggered != nil {
		rule.LastTriggeredAt = *lastTriggered
	}

	return nil
}

func (s *Storage) AddRuleExecution(ctx context.Context, execution types.RuleExecution) error {
	triggerData, _ := json.Marshal(execution.TriggerData)
	actions, _ := json.Marshal(execution.ActionsExecuted)

	args := pgx.NamedArgs{
		"execution_id": execution.ID,
		"rule_id":      execution.RuleID,
		"triggered_at": execution.TriggeredAt.UTC(),
		"success":      execution.Success,
		"elapsed_ms":   execution.ElapsedMs,
		"trigger_data": string(triggerData),
		"actions":      string(actions),
		"error":        execution.ErrorMessage,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO rule_executions (execution_id, rule_id, triggered_at, success, elapsed_ms, trigger_data, actions, error_message)
		VALUES (@execution_id, @rule_id, @triggered_at, @success, @elapsed_ms, @trigger_data, @actions, @error)
	`, args)

	return err
}

func (s *Storage) QueryRuleExecutions(ctx context.Context, conditions ...ConditionFunc) (types.Collection[types.RuleExecution], error) {
	condition := newCondition(conditions...)
	args := condition.NamedArgs()

	offsetLimit, offset, limit := condition.OffsetLimit(100)
	args["_offset"] = offset
	args["_limit"] = limit

	query := fmt.Sprintf(`
		SELECT execution_id, rule_id, triggered_at, success, elapsed_ms, trigger_data, actions, error_message, count(*) OVER () AS total
		FROM rule_executions
		WHERE %s
		%s%s
	`, condition.Where("triggered_at"), condition.OrderBy("triggered_at DESC"), offsetLimit)

	rows, err := s.pool.Query(ctx, query, args)
	if err != nil {
		return types.Collection[types.RuleExecution]{}, err
	}
	defer rows.Close()

	executions := make([]types.RuleExecution, 0)
	var total uint64

	for rows.Next() {
		var execution types.RuleExecution
		var triggerData, actions json.RawMessage
		var errorMessage *string

		err := rows.Scan(&execution.ID, &execution.RuleID, &execution.TriggeredAt,
			&execution.Success, &execution.ElapsedMs, &triggerData, &actions, &errorMessage, &total)
		if err != nil {
			return types.Collection[types.RuleExecution]{}, err
		}

		json.Unmarshal(triggerData, &execution.TriggerData)
		json.Unmarshal(actions, &execution.ActionsExecuted)
		if errorMessage != nil {
			execution.ErrorMessage = *errorMessage
		}

		executions = append(executions, execution)
	}

	return types.Collection[types.RuleExecution]{
		Data:       executions,
		Count:      uint64(len(executions)),
		Offset:     uint64(offset),
		Limit:      uint64(limit),
		TotalCount: total,
	}, nil
}

// CountRuleExecutionsSince backs the sliding rate window.
func (s *Storage) CountRuleExecutionsSince(ctx context.Context, ruleID string, since time.Time) (int, error) {
	var count int

	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM rule_executions
		WHERE rule_id = $1 AND triggered_at >= $2
	`, ruleID, since.UTC()).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
