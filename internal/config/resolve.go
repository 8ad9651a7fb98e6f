package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"strings"
	"time"
)

// resolveTimeout bounds external helpers (op, shell commands, DNS) so a hung
// secret lookup cannot stall startup forever.
var resolveTimeout = 15 * time.Second

// ResolveValue handles magic schemes in config values:
//   - op://vault/item/field -> 1Password secret (via `op read`)
//   - srv://record/path -> DNS SRV lookup + path (always HTTPS)
//   - $(...) -> shell command output
//   - ${VAR} or $VAR -> environment variable
//   - anything else is returned as-is
func ResolveValue(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	switch {
	case strings.HasPrefix(value, "op://"):
		return resolveOnePassword(ctx, value)
	case strings.HasPrefix(value, "srv://"):
		return resolveSRV(ctx, value)
	case strings.HasPrefix(value, "$(") && strings.HasSuffix(value, ")"):
		return runForOutput(ctx, "command", "sh", "-c", value[2:len(value)-1])
	default:
		return expandEnv(value), nil
	}
}

// resolveOnePassword reads op://vault/item/field, honoring an optional
// ?account=... query parameter.
func resolveOnePassword(ctx context.Context, opURL string) (string, error) {
	u, err := url.Parse(opURL)
	if err != nil {
		return "", fmt.Errorf("1password: invalid URL %s: %w", opURL, err)
	}

	ref := fmt.Sprintf("op://%s%s", u.Host, u.Path)
	args := []string{"read", ref}
	if account := u.Query().Get("account"); account != "" {
		args = append(args, "--account", account)
	}

	out, err := runForOutput(ctx, "1password", "op", args...)
	if err != nil {
		return "", fmt.Errorf("%w (is 'op' CLI installed and signed in?)", err)
	}
	return out, nil
}

// resolveSRV turns srv://_service._proto.domain/path into https://host:port/path
// using the highest priority record.
func resolveSRV(ctx context.Context, srvURL string) (string, error) {
	u, err := url.Parse(srvURL)
	if err != nil {
		return "", fmt.Errorf("invalid srv:// URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("srv:// URL missing host: %s", srvURL)
	}

	_, addrs, err := net.DefaultResolver.LookupSRV(ctx, "", "", u.Host)
	if err != nil {
		return "", fmt.Errorf("SRV lookup failed for %s: %w", u.Host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no SRV records found for %s", u.Host)
	}

	host := strings.TrimSuffix(addrs[0].Target, ".")
	return fmt.Sprintf("https://%s:%d%s", host, addrs[0].Port, u.Path), nil
}

func runForOutput(ctx context.Context, label, name string, args ...string) (string, error) {
	output, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s failed: %s", label, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("%s failed: %w", label, err)
	}
	return strings.TrimSpace(string(output)), nil
}
