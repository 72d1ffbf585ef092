package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "ALD", cfg.School.AdmissionPrefix)
	assert.Equal(t, "student.aladab.com", cfg.School.StudentEmailDomain)
	assert.Equal(t, 8, cfg.Timetable.Periods)
	assert.Equal(t, 6, cfg.Timetable.FridayPeriods)
	assert.Equal(t, 40, cfg.Timetable.PeriodMinutes)
	assert.Equal(t, 4, cfg.Timetable.BreakAfter)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
}

func TestFromViperBadDurationFallsBack(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("JWT_EXPIRATION", "soon")
	v.Set("TIMETABLE_PERIODS", -3)

	cfg := fromViper(v)

	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 8, cfg.Timetable.Periods)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
}

func TestDSN(t *testing.T) {
	dsn := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}.DSN()
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", dsn)
}

func TestValidateRejectsDevSecretsInProduction(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)
	assert.NoError(t, cfg.Validate())

	cfg.Env = EnvProduction
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg.JWT.Secret = "a-real-secret"
	assert.NoError(t, cfg.Validate())

	cfg.Exports.Enabled = true
	assert.ErrorContains(t, cfg.Validate(), "EXPORTS_SIGNED_URL_SECRET")

	cfg.Exports.SignedURLSecret = "another-secret"
	assert.NoError(t, cfg.Validate())
}
