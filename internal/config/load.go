package config

import (
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// doc mirrors the on-disk document shape. It exists so the YAML tags don't
// leak into the in-memory model the rest of the core operates on.
type doc struct {
	Global struct {
		DataDir        string `yaml:"data_dir"`
		ReleasesDir    string `yaml:"releases_dir"`
		CacheDir       string `yaml:"cache_dir"`
		MirrorURL      string `yaml:"mirror_url"`
		StorageBackend string `yaml:"storage_backend"`
		Pool           string `yaml:"pool"`
		DatasetRoot    string `yaml:"dataset_root"`
	} `yaml:"global"`
	Jails []struct {
		Name      string   `yaml:"name"`
		Hostname  string   `yaml:"hostname"`
		Path      string   `yaml:"path"`
		Release   string   `yaml:"release"`
		DependsOn []string `yaml:"depends_on"`
		Network   *struct {
			VNet        bool     `yaml:"vnet"`
			Bridge      string   `yaml:"bridge"`
			IPv4        string   `yaml:"ipv4"`
			Gateway     string   `yaml:"gateway"`
			MAC         string   `yaml:"mac"`
			DNSMode     string   `yaml:"dns_mode"`
			Nameservers []string `yaml:"nameservers"`
		} `yaml:"network"`
		Healthcheck *struct {
			Enabled bool `yaml:"enabled"`
			Checks  []struct {
				Name     string `yaml:"name"`
				Command  string `yaml:"command"`
				Target   string `yaml:"target"`
				Interval int    `yaml:"interval"`
				Timeout  int    `yaml:"timeout"`
				Retries  int    `yaml:"retries"`
			} `yaml:"checks"`
		} `yaml:"healthcheck"`
		Hooks []struct {
			Phase     string `yaml:"phase"`
			Target    string `yaml:"target"`
			Command   string `yaml:"command"`
			OnFailure string `yaml:"on_failure"`
		} `yaml:"hooks"`
		ExposedPorts []struct {
			HostIP       string `yaml:"host_ip"`
			HostPort     int    `yaml:"host_port"`
			InternalPort int    `yaml:"internal_port"`
			Protocol     string `yaml:"protocol"`
		} `yaml:"exposed_ports"`
	} `yaml:"jails"`
}

// Load parses a fleet document into the in-memory model. It performs no
// cross-jail validation — that's internal/fleet's check().
func Load(r io.Reader) (*Fleet, error) {
	var d doc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode fleet document: %w", err)
	}

	fleet := &Fleet{
		Global: Global{
			DataDir:        d.Global.DataDir,
			ReleasesDir:    d.Global.ReleasesDir,
			CacheDir:       d.Global.CacheDir,
			MirrorURL:      d.Global.MirrorURL,
			StorageBackend: StorageBackend(d.Global.StorageBackend),
			Pool:           d.Global.Pool,
			DatasetRoot:    d.Global.DatasetRoot,
		},
	}

	for _, j := range d.Jails {
		if !namePattern.MatchString(j.Name) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidName, j.Name)
		}

		spec := JailSpec{
			Name:      j.Name,
			Hostname:  j.Hostname,
			Path:      j.Path,
			Release:   j.Release,
			DependsOn: j.DependsOn,
		}

		if j.Network != nil {
			spec.Network = &Network{
				VNet:        j.Network.VNet,
				Bridge:      j.Network.Bridge,
				IPv4:        j.Network.IPv4,
				Gateway:     j.Network.Gateway,
				MAC:         j.Network.MAC,
				DNSMode:     DNSMode(j.Network.DNSMode),
				Nameservers: j.Network.Nameservers,
			}
		}

		if j.Healthcheck != nil {
			hc := &Healthcheck{Enabled: j.Healthcheck.Enabled}
			for _, c := range j.Healthcheck.Checks {
				hc.Checks = append(hc.Checks, CheckSpec{
					Name:     c.Name,
					Command:  c.Command,
					Target:   CheckTarget(c.Target),
					Interval: c.Interval,
					Timeout:  c.Timeout,
					Retries:  c.Retries,
				})
			}
			spec.Healthcheck = hc
		}

		for _, h := range j.Hooks {
			spec.Hooks = append(spec.Hooks, HookSpec{
				Phase:     HookPhase(h.Phase),
				Target:    CheckTarget(h.Target),
				Command:   h.Command,
				OnFailure: HookFailureMode(h.OnFailure),
			})
		}

		for _, p := range j.ExposedPorts {
			spec.ExposedPorts = append(spec.ExposedPorts, ExposedPort{
				HostIP:       p.HostIP,
				HostPort:     p.HostPort,
				InternalPort: p.InternalPort,
				Protocol:     Protocol(p.Protocol),
			})
		}

		fleet.Jails = append(fleet.Jails, spec)
	}

	return fleet, nil
}
