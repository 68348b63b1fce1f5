package script

import "fmt"

// =============================================================================
// Reverse Proxy Configuration
// =============================================================================

// vhostTemplate is the nginx server block: listen on 80, forward everything
// to the application port on loopback, preserve the original host header and
// client address.
const vhostTemplate = `server {
    listen 80;
    server_name _;

    location / {
        proxy_pass http://%s;
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
    }
}
`

// UpstreamAddress is the proxy_pass target for a locally published port.
func UpstreamAddress(port int) string {
	return fmt.Sprintf("127.0.0.1:%d", port)
}

// RenderVhost produces the nginx virtual-host definition for the given
// application port.
func RenderVhost(port int) string {
	return fmt.Sprintf(vhostTemplate, UpstreamAddress(port))
}

// SitePath is where the vhost definition is written on the target.
func SitePath(project string) string {
	return fmt.Sprintf("/etc/nginx/sites-available/%s", project)
}

// enabledPath is the symlink location activating the site.
func enabledPath(project string) string {
	return fmt.Sprintf("/etc/nginx/sites-enabled/%s", project)
}

// ConfigureProxy writes the vhost, links it into the active-sites directory,
// tests the configuration and reloads nginx. The script is fail-fast, so a
// failed syntax test blocks the reload.
func ConfigureProxy(project string, port int) Script {
	site := SitePath(project)
	return Script{
		Name:     "configure-proxy",
		FailFast: true,
		Commands: []string{
			fmt.Sprintf("sudo tee %s >/dev/null <<'CARAVEL_VHOST'\n%sCARAVEL_VHOST", site, RenderVhost(port)),
			fmt.Sprintf("sudo ln -sf %s %s", site, enabledPath(project)),
			"sudo nginx -t",
			"sudo systemctl reload nginx",
		},
	}
}

// =============================================================================
// Deployment Validation
// =============================================================================

// Validate inspects the result: running containers, proxy service state, and
// a local HTTP probe against port 80. Not fail-fast; the pipeline treats a
// non-zero exit here as a warning, never a failure.
func Validate() Script {
	return Script{
		Name:     "validate",
		FailFast: false,
		Commands: []string{
			"docker ps",
			"systemctl is-active nginx",
			`curl -fsS -m 10 http://127.0.0.1/ >/dev/null || echo "warning: local HTTP probe failed"`,
		},
	}
}
