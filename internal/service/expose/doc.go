// Package expose implements the stand-expose command: ufw firewall rules for
// SSH and the app port, plus optional domain setup through a Caddy reverse
// proxy with automatic HTTPS.
package expose
