package database

import (
	"fmt"
	"strings"
	"time"

	"sales-crm/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

type Options struct {
	MaxAttempts int
	RetryDelay  time.Duration
	// NowFunc: reloj para CreatedAt/UpdatedAt; por defecto time.Now en UTC.
	NowFunc func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
	if o.NowFunc == nil {
		o.NowFunc = func() time.Time { return time.Now().UTC() }
	}
	return o
}

func dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
	}
	return postgres.Open(dsn)
}

// Open conecta con reintentos. Un DSN "sqlite:<ruta>" abre SQLite (desarrollo y pruebas).
func Open(dsn string, log *zap.Logger, opts Options) (*gorm.DB, error) {
	opts = opts.withDefaults()

	var (
		db  *gorm.DB
		err error
	)
	for i := 1; i <= opts.MaxAttempts; i++ {
		log.Info("connecting to database", zap.Int("attempt", i), zap.Int("max_attempts", opts.MaxAttempts))

		db, err = gorm.Open(dialector(dsn), &gorm.Config{
			NowFunc: opts.NowFunc,
			Logger:  logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			log.Info("connected to database")
			return db, nil
		}

		log.Warn("failed to connect to database", zap.Error(err))
		if i < opts.MaxAttempts {
			time.Sleep(opts.RetryDelay)
		}
	}

	return nil, fmt.Errorf("connect to db after %d attempts: %w", opts.MaxAttempts, err)
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Prospect{},
		&models.Activity{},
		&models.ActivityLog{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type SeedUser struct {
	Username string
	FullName string
	Password string
	Role     models.UserRole
}

// EnsureManager: crea el gerente por defecto si todavía no hay ninguno.
func EnsureManager(db *gorm.DB, log *zap.Logger, username, password string) error {
	var count int64
	if err := db.Model(&models.User{}).
		Where("role = ?", models.RoleManager).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check manager user: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := CreateUser(db, SeedUser{
		Username: username,
		FullName: "Gerente",
		Password: password,
		Role:     models.RoleManager,
	}); err != nil {
		return err
	}

	log.Info("created default manager", zap.String("username", username))
	return nil
}

// SeedDemoUsers: un par de vendedores para la demo.
func SeedDemoUsers(db *gorm.DB, log *zap.Logger) {
	users := []SeedUser{
		{Username: "ventas1@crm.local", FullName: "Ana Vendedora", Password: "Ventas123!", Role: models.RoleSalesperson},
		{Username: "ventas2@crm.local", FullName: "Luis Vendedor", Password: "Ventas123!", Role: models.RoleSalesperson},
	}

	for _, u := range users {
		var count int64
		if err := db.Model(&models.User{}).
			Where("username = ?", u.Username).
			Count(&count).Error; err != nil {
			log.Warn("failed to check seed user", zap.String("username", u.Username), zap.Error(err))
			continue
		}
		if count > 0 {
			continue
		}

		if _, err := CreateUser(db, u); err != nil {
			log.Warn("failed to create seed user", zap.String("username", u.Username), zap.Error(err))
			continue
		}

		log.Info("created seed user", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	}
}

// CreateUser guarda un usuario activo con la contraseña en bcrypt.
func CreateUser(db *gorm.DB, u SeedUser) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password for %s: %w", u.Username, err)
	}

	user := models.User{
		Username:     u.Username,
		FullName:     u.FullName,
		PasswordHash: string(hash),
		Role:         u.Role,
		Active:       true,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", u.Username, err)
	}
	return &user, nil
}

// SeedDemoProspects: prospectos en la etapa inicial para probar las llamadas diarias.
// No hace nada si ya existen prospectos.
func SeedDemoProspects(db *gorm.DB, log *zap.Logger, phase models.Phase) error {
	var count int64
	if err := db.Model(&models.Prospect{}).Count(&count).Error; err != nil {
		return fmt.Errorf("check prospects: %w", err)
	}
	if count > 0 {
		return nil
	}

	prospects := []models.Prospect{
		{CompanyName: "Hotel Radisson", ContactName: "Laura Méndez", Phone: "+52 55 5555 0101", CurrentPhase: phase, EstimatedValue: 120000},
		{CompanyName: "Grupo Alimentos del Norte", ContactName: "Jorge Salas", Phone: "+52 81 5555 0202", CurrentPhase: phase, EstimatedValue: 45000},
		{CompanyName: "Clínica San Rafael", ContactName: "Marta Ruiz", Email: "compras@sanrafael.example", CurrentPhase: phase, EstimatedValue: 80000},
		{CompanyName: "Constructora Pacífico", ContactName: "Raúl Ortega", CurrentPhase: phase, EstimatedValue: 250000},
	}
	if err := db.Create(&prospects).Error; err != nil {
		return fmt.Errorf("seed prospects: %w", err)
	}
	log.Info("created demo prospects", zap.Int("count", len(prospects)))
	return nil
}
