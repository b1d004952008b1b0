// SPDX-License-Identifier: Apache-2.0

package docker

import (
	"os"
	"strings"
)

var proxyVars = []string{"HTTP_PROXY", "HTTPS_PROXY", "NO_PROXY"}

// ProxyArgs forwards the standard proxy environment variables as build
// arguments, in both spellings. The uppercase variable wins when both are
// set; badly behaved build steps get the lowercase copy.
func ProxyArgs() map[string]string {
	args := make(map[string]string)

	for _, name := range proxyVars {
		value := os.Getenv(name)
		if value == "" {
			value = os.Getenv(strings.ToLower(name))
		}
		if value == "" {
			continue
		}

		args[name] = value
		args[strings.ToLower(name)] = value
	}

	return args
}
