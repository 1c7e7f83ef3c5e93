package migrations

import (
	"github.com/formpipe/formpipe/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_tenants_and_forms",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.TenantModel{}, &repository.FormModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_forms_tenant_id ON forms (tenant_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				if err := tx.Migrator().DropTable(&repository.FormModel{}); err != nil {
					return err
				}
				return tx.Migrator().DropTable(&repository.TenantModel{})
			},
		},
		{
			ID: "000002_create_form_responses",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.FormResponseModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_form_responses_form_id ON form_responses (form_id)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.FormResponseModel{})
			},
		},
		{
			ID: "000003_create_notification_records",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.NotificationRecordModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_notification_records_pending ON notification_records (created_at) WHERE status = 'pending'`,
					`CREATE INDEX IF NOT EXISTS idx_notification_records_response_id ON notification_records (response_id)`,
					`CREATE INDEX IF NOT EXISTS idx_notification_records_form_id ON notification_records (form_id)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.NotificationRecordModel{})
			},
		},
	})

	return m.Migrate()
}
