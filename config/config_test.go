package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitConfRejectsUnknownEnv(t *testing.T) {
	err := InitConf(&Configuration{AppName: "test", Env: "prod"})
	assert.NotNil(t, err)
}

func TestInitConfDefaults(t *testing.T) {
	conf := &Configuration{AppName: "test", Env: DEVELOPMENT}
	err := InitConf(conf)
	assert.Nil(t, err)
	assert.Equal(t, "Asia/Kolkata", conf.Timezone)
	assert.Equal(t, 1, conf.NumRoutines)
	assert.True(t, IsDevelopment())
}

func TestGetNumRoutinesGuards(t *testing.T) {
	configuration = nil
	assert.Equal(t, 1, GetNumRoutines())

	err := InitConf(&Configuration{AppName: "test", Env: DEVELOPMENT, NumRoutines: 6})
	assert.Nil(t, err)
	assert.Equal(t, 6, GetNumRoutines())
}

func TestGetAppName(t *testing.T) {
	assert.Equal(t, "run_attribution", GetAppName("run_attribution", ""))
	assert.Equal(t, "backfill", GetAppName("run_attribution", "backfill"))
}
