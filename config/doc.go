// Package config loads the service configuration from YAML.
//
// Every key is optional; missing keys keep the values from Default.
//
//	server:
//	  addr: ":8080"
//	  cors_origins: ["https://admin.example.com"]
//	  rate_limit: {rps: 50, burst: 100}
//	database:
//	  driver: mysql            # mysql, postgres or sqlite
//	  dsn: "user:pass@tcp(db:3306)/app?parseTime=true"
//	cache:
//	  backend: memory          # memory or redis
//	  redis: {addr: "cache:6379", prefix: "scaffold:"}
//	log:
//	  level: info
//	  format: json             # json or console
//	validation:
//	  messages:
//	    validation_required: "is required"
//
// The file path is taken from the Load argument or, when empty, from the
// SCAFFOLD_CONFIG environment variable.
package config
