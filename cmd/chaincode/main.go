package main

import (
	"log"
	"os"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/dyluth/papernet/internal/chaincode"
	"github.com/dyluth/papernet/internal/config"
	"github.com/dyluth/papernet/pkg/paper"
)

// policyEnv names a YAML policy file to load at startup. Without it every
// action is open to every organization.
const policyEnv = "PAPERNET_POLICY_FILE"

func main() {
	policy := paper.DefaultPolicy()
	if path := os.Getenv(policyEnv); path != "" {
		var err error
		policy, err = config.LoadPolicy(path)
		if err != nil {
			log.Panicf("Error loading policy from %s: %v", path, err)
		}
		log.Printf("[INFO] Loaded policy from %s (%d rules)", path, len(policy))
	}

	cc, err := contractapi.NewChaincode(chaincode.NewSmartContract(policy))
	if err != nil {
		log.Panicf("Error creating import paper chaincode: %v", err)
	}

	if err := cc.Start(); err != nil {
		log.Panicf("Error starting import paper chaincode: %v", err)
	}
}
