package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Deployment is the contract deployment manifest written by the deploy
// tooling, one table per address.
type Deployment struct {
	Contracts DeploymentContracts `toml:"contracts"`
	Treasury  string              `toml:"treasury"`
}

// DeploymentContracts lists the deployed contract addresses.
type DeploymentContracts struct {
	Registrar    string `toml:"registrar"`
	Marketplace  string `toml:"marketplace"`
	Membership   string `toml:"membership"`
	PaymentToken string `toml:"payment_token"`
}

// LoadDeployment loads a contract deployment manifest from a TOML file.
func LoadDeployment(filename string) (*Deployment, error) {
	deployment := &Deployment{}
	if _, err := toml.DecodeFile(filename, deployment); err != nil {
		return nil, fmt.Errorf("failed to load deployment file: %w", err)
	}
	return deployment, nil
}

// applyDeployment fills chain addresses from the manifest; env values that
// are already set keep priority.
func applyDeployment(chain *ChainConfig, deployment *Deployment) {
	if chain.Registrar == "" {
		chain.Registrar = deployment.Contracts.Registrar
	}
	if chain.Marketplace == "" {
		chain.Marketplace = deployment.Contracts.Marketplace
	}
	if chain.Membership == "" {
		chain.Membership = deployment.Contracts.Membership
	}
	if chain.PaymentToken == "" {
		chain.PaymentToken = deployment.Contracts.PaymentToken
	}
	if chain.TreasuryAddress == "" {
		chain.TreasuryAddress = deployment.Treasury
	}
}
