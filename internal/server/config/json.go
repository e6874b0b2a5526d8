package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/listsync/internal/flagx"
	"github.com/dmitrijs2005/listsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify the token lifetime either
// as a string like "24h" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	EndpointAddr                string         `json:"endpoint_addr"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
}

// parseJson overlays Config with values loaded from a JSON file selected via
// the -c or -config flags. If no file is given, nothing is loaded. Read or
// unmarshal errors panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	config.EndpointAddr = jc.EndpointAddr
	config.DatabaseDSN = jc.DatabaseDSN
	config.SecretKey = jc.SecretKey
	config.AccessTokenValidityDuration = time.Duration(jc.AccessTokenValidityDuration.Duration)
}
