// Package config loads the vaxcli configuration.
//
// # Configuration Sources
//
// Configuration is layered in order of increasing precedence:
//
//	1. Default values (Default)
//	2. A YAML file named by VAX_CONFIG_FILE, or passed to LoadFile
//	3. Environment variables
//
// # Environment Variables
//
// Variables follow the pattern VAX_<SECTION>_<FIELD>:
//
//	VAX_SERVER_PORT=8080
//	VAX_LOGGING_LEVEL=debug
//	VAX_PIPELINE_ABS_TOLERANCE=1000
//	VAX_PIPELINE_FORECAST=false
//	VAX_INGEST_GROUPS=80+,70-79,60-69
//
// # Validation
//
// The loaded configuration is validated with struct tags, and the pipeline
// section is additionally converted to pipeline.Params and checked there.
package config
