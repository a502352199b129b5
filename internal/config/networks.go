package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"payment-settlement-go/internal/models"

	"gopkg.in/yaml.v2"
)

type NetworkConfig struct {
	Name            string `yaml:"name"`
	ChainID         int64  `yaml:"chain_id"`
	RPCURL          string `yaml:"rpc_url"`
	ContractAddress string `yaml:"contract_address"`
	ExplorerURL     string `yaml:"explorer_url"`
}

type NetworksConfig struct {
	Networks []NetworkConfig `yaml:"networks"`
}

func LoadNetworks(networksFile string) ([]NetworkConfig, error) {
	var networksPath string
	if filepath.IsAbs(networksFile) {
		networksPath = networksFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		networksPath = filepath.Join(wd, networksFile)
	}

	data, err := os.ReadFile(networksPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", networksFile, err)
	}

	var config NetworksConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", networksFile, err)
	}

	for i, network := range config.Networks {
		if network.Name == "" {
			return nil, fmt.Errorf("network at index %d missing name", i)
		}
		if network.ChainID <= 0 {
			return nil, fmt.Errorf("network %s missing chain_id", network.Name)
		}
	}

	return config.Networks, nil
}

// ResolveChain fills the chain settings not given in the environment from the
// named network in the networks file. A missing file is tolerated as long as
// the environment already provides the RPC URL, chain id and contract address.
func ResolveChain(chain *models.ChainConfig) error {
	networks, err := LoadNetworks(chain.NetworksFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && chainComplete(chain) {
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return fmt.Errorf("chain settings incomplete and %w", err)
	}

	for _, n := range networks {
		if n.Name != chain.Network {
			continue
		}
		if chain.RPCURL == "" {
			chain.RPCURL = n.RPCURL
		}
		if chain.ChainID == 0 {
			chain.ChainID = n.ChainID
		}
		if chain.ContractAddress == "" {
			chain.ContractAddress = n.ContractAddress
		}
		if chain.ExplorerURL == "" {
			chain.ExplorerURL = n.ExplorerURL
		}
		break
	}

	if !chainComplete(chain) {
		return fmt.Errorf("network %q needs rpc_url, chain_id and contract_address", chain.Network)
	}
	return nil
}

func chainComplete(chain *models.ChainConfig) bool {
	return chain.RPCURL != "" && chain.ChainID != 0 && chain.ContractAddress != ""
}
