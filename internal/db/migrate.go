package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

// Schema setup runs in three steps: raw SQL that must exist before gorm can
// create tables (schema, extensions), the gorm auto-migration itself, then
// raw SQL gorm cannot express (partial and composite indexes).

//go:embed sql/pre_automigrate.sql
var preMigrateSQL string

//go:embed sql/post_automigrate.sql
var postMigrateSQL string

func (p *Pool) migrate(ctx context.Context) error {
	if err := p.execScript(ctx, "pre-migrate", preMigrateSQL); err != nil {
		return err
	}
	if err := p.orm.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
		return fmt.Errorf("auto-migrate models: %w", err)
	}
	return p.execScript(ctx, "post-migrate", postMigrateSQL)
}

func (p *Pool) execScript(ctx context.Context, name, script string) error {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil
	}
	if err := p.orm.WithContext(ctx).Exec(script).Error; err != nil {
		return fmt.Errorf("run %s script: %w", name, err)
	}
	return nil
}
