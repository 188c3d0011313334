// Package attackconfig provides the configuration shared by every detector.
//
// Detector packages embed [Base] to inherit the HTTP client, logger,
// probe limits and the finding callback:
//
//	type Config struct {
//	    attackconfig.Base
//	    Params []string
//	}
package attackconfig
