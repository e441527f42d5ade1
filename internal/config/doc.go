// Package config loads reactivity.json, the settings file of the
// reactivity command.
//
// The file is optional. It is looked up in the working directory and then in
// each parent, and missing fields take their defaults.
//
// # Configuration File Structure
//
//	{
//	  "logLevel": "info",
//	  "logFormat": "text",
//	  "readonly": "warn",
//	  "inspector": {
//	    "addr": "127.0.0.1:7070",
//	    "buffer": 1024,
//	    "rate": 100,
//	    "burst": 50
//	  },
//	  "metrics": {
//	    "namespace": "reactivity"
//	  },
//	  "persist": {
//	    "dir": ".snapshots",
//	    "s3": {
//	      "bucket": "my-bucket",
//	      "prefix": "snapshots/",
//	      "region": "eu-west-1"
//	    }
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := cfg.NewLogger(os.Stderr)
package config
