package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/oldrooster/simple-budget/internal/database"
)

// RuleRepo handles rules and their conditions and actions.
type RuleRepo struct {
	db *sql.DB
}

func NewRuleRepo(db *sql.DB) *RuleRepo { return &RuleRepo{db: db} }

// Get returns a rule with its conditions (ordered by position) and actions
// expanded, or ErrNotFound.
func (r *RuleRepo) Get(ctx context.Context, id int64) (Rule, error) {
	var rule Rule
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT id, name, description FROM rules WHERE id = ?`, id).
		Scan(&rule.ID, &rule.Name, &desc)
	if err == sql.ErrNoRows {
		return Rule{}, fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Rule{}, err
	}
	rule.Description = desc.String

	condRows, err := r.db.QueryContext(ctx, `
	SELECT id, rule_id, position, field, operator, value, or_prev
	FROM rule_conditions WHERE rule_id = ? ORDER BY position;
	`, id)
	if err != nil {
		return Rule{}, err
	}
	defer condRows.Close()
	for condRows.Next() {
		var c RuleCondition
		var orPrev int
		if err := condRows.Scan(&c.ID, &c.RuleID, &c.Position, &c.Field, &c.Operator, &c.Value, &orPrev); err != nil {
			return Rule{}, err
		}
		c.OrPrev = orPrev != 0
		rule.Conditions = append(rule.Conditions, c)
	}
	if err := condRows.Err(); err != nil {
		return Rule{}, err
	}

	actRows, err := r.db.QueryContext(ctx, `
	SELECT id, rule_id, category_id, subcategory_id
	FROM rule_actions WHERE rule_id = ? ORDER BY id;
	`, id)
	if err != nil {
		return Rule{}, err
	}
	defer actRows.Close()
	for actRows.Next() {
		var a RuleAction
		var sub sql.NullInt64
		if err := actRows.Scan(&a.ID, &a.RuleID, &a.CategoryID, &sub); err != nil {
			return Rule{}, err
		}
		if sub.Valid {
			a.SubcategoryID = &sub.Int64
		}
		rule.Actions = append(rule.Actions, a)
	}
	return rule, actRows.Err()
}

func (r *RuleRepo) List(ctx context.Context) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description FROM rules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rule
	for rows.Next() {
		var rule Rule
		var desc sql.NullString
		if err := rows.Scan(&rule.ID, &rule.Name, &desc); err != nil {
			return nil, err
		}
		rule.Description = desc.String
		out = append(out, rule)
	}
	return out, rows.Err()
}

// Upsert creates the rule when its ID is zero, otherwise updates it in
// place. Conditions and actions are replaced wholesale in one transaction.
func (r *RuleRepo) Upsert(ctx context.Context, rule Rule) (int64, error) {
	id := rule.ID
	err := database.WithTx(r.db, func(tx *sql.Tx) error {
		if id == 0 {
			res, err := tx.ExecContext(ctx, `INSERT INTO rules(name, description) VALUES(?, ?)`,
				rule.Name, rule.Description)
			if err != nil {
				return err
			}
			newID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			id = newID
		} else {
			res, err := tx.ExecContext(ctx, `UPDATE rules SET name = ?, description = ? WHERE id = ?`,
				rule.Name, rule.Description, id)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("rule %d: %w", id, ErrNotFound)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM rule_conditions WHERE rule_id = ?`, id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM rule_actions WHERE rule_id = ?`, id); err != nil {
				return err
			}
		}
		for i, c := range rule.Conditions {
			orPrev := 0
			if c.OrPrev {
				orPrev = 1
			}
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO rule_conditions(rule_id, position, field, operator, value, or_prev)
			VALUES(?, ?, ?, ?, ?, ?);
			`, id, i, c.Field, c.Operator, c.Value, orPrev); err != nil {
				return err
			}
		}
		for _, a := range rule.Actions {
			var sub interface{}
			if a.SubcategoryID != nil {
				sub = *a.SubcategoryID
			}
			if _, err := tx.ExecContext(ctx, `
			INSERT INTO rule_actions(rule_id, category_id, subcategory_id)
			VALUES(?, ?, ?);
			`, id, a.CategoryID, sub); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *RuleRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("rule %d: %w", id, ErrNotFound)
	}
	return nil
}
