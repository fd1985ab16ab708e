// Package chaincode exposes the paper contract as Hyperledger Fabric chaincode.
// Every function returns the paper in its stored JSON form.
package chaincode

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/dyluth/papernet/pkg/paper"
)

// ContractName is the namespace the contract is registered under.
const ContractName = "org.papernet.importpaper"

// SmartContract provides the import paper lifecycle functions.
type SmartContract struct {
	contractapi.Contract
	policy paper.Policy
}

// NewSmartContract creates the chaincode contract enforcing policy.
func NewSmartContract(policy paper.Policy) *SmartContract {
	if policy == nil {
		policy = paper.DefaultPolicy()
	}
	sc := &SmartContract{policy: policy}
	sc.Name = ContractName
	sc.Info.Title = "papernet import paper"
	sc.Info.Version = "1.0.0"
	return sc
}

// Submit creates a new INVOICED paper.
func (s *SmartContract) Submit(
	ctx contractapi.TransactionContextInterface,
	importer string,
	paperNumber int64,
	exporter string,
	submitDateTime string,
	importerAddress string,
	productCategory string,
	product string,
	quantity int64,
	productValue float64,
) (string, error) {
	c, callCtx, err := s.contract(ctx)
	if err != nil {
		return "", err
	}
	p, err := c.Submit(callCtx, paper.Submission{
		Importer:        importer,
		PaperNumber:     paperNumber,
		Exporter:        exporter,
		SubmitDateTime:  submitDateTime,
		ImporterAddress: importerAddress,
		ProductCategory: productCategory,
		Product:         product,
		Quantity:        quantity,
		ProductValue:    productValue,
	})
	return serialize(p, err)
}

// Match records the exporter's match of an INVOICED paper.
func (s *SmartContract) Match(ctx contractapi.TransactionContextInterface, importer string, paperNumber int64, exporter string, exporterAddress string) (string, error) {
	c, callCtx, err := s.contract(ctx)
	if err != nil {
		return "", err
	}
	return serialize(c.Match(callCtx, importer, paperNumber, exporter, exporterAddress))
}

// Confirm moves a MATCHED paper to CONFIRMED.
func (s *SmartContract) Confirm(ctx contractapi.TransactionContextInterface, importer string, paperNumber int64) (string, error) {
	c, callCtx, err := s.contract(ctx)
	if err != nil {
		return "", err
	}
	return serialize(c.Confirm(callCtx, importer, paperNumber))
}

// Clear moves a CONFIRMED paper to CLEARED.
func (s *SmartContract) Clear(ctx contractapi.TransactionContextInterface, importer string, paperNumber int64) (string, error) {
	c, callCtx, err := s.contract(ctx)
	if err != nil {
		return "", err
	}
	return serialize(c.Clear(callCtx, importer, paperNumber))
}

// Cancel moves a paper that is not FINISHED to CANCELED.
func (s *SmartContract) Cancel(ctx contractapi.TransactionContextInterface, importer string, paperNumber int64) (string, error) {
	c, callCtx, err := s.contract(ctx)
	if err != nil {
		return "", err
	}
	return serialize(c.Cancel(callCtx, importer, paperNumber))
}

// Finish moves a CONFIRMED paper to FINISHED.
func (s *SmartContract) Finish(ctx contractapi.TransactionContextInterface, importer string, paperNumber int64) (string, error) {
	c, callCtx, err := s.contract(ctx)
	if err != nil {
		return "", err
	}
	return serialize(c.Finish(callCtx, importer, paperNumber))
}

// Query returns a paper without changing it.
func (s *SmartContract) Query(ctx contractapi.TransactionContextInterface, importer string, paperNumber int64) (string, error) {
	c, callCtx, err := s.contract(ctx)
	if err != nil {
		return "", err
	}
	return serialize(c.Query(callCtx, importer, paperNumber))
}

// List returns a JSON array of the importer's papers, or of every paper when
// importer is empty.
func (s *SmartContract) List(ctx contractapi.TransactionContextInterface, importer string) (string, error) {
	c, callCtx, err := s.contract(ctx)
	if err != nil {
		return "", err
	}
	papers, err := c.List(callCtx, importer)
	if err != nil {
		return "", err
	}
	if papers == nil {
		papers = []*paper.ImportPaper{}
	}
	data, err := json.Marshal(papers)
	if err != nil {
		return "", fmt.Errorf("failed to marshal papers: %w", err)
	}
	return string(data), nil
}

// contract binds a paper.Contract to this invocation's stub and caller.
func (s *SmartContract) contract(ctx contractapi.TransactionContextInterface) (*paper.Contract, context.Context, error) {
	caller, err := callerMSPID(ctx)
	if err != nil {
		return nil, nil, err
	}

	stub := ctx.GetStub()
	c := paper.NewContract(stubLedger{stub: stub},
		paper.WithPolicy(s.policy),
		paper.WithPublisher(stubPublisher{stub: stub}),
	)
	return c, paper.WithCaller(context.Background(), caller), nil
}

func callerMSPID(ctx contractapi.TransactionContextInterface) (string, error) {
	identity := ctx.GetClientIdentity()
	if identity == nil {
		return "", nil
	}
	mspID, err := identity.GetMSPID()
	if err != nil {
		return "", fmt.Errorf("failed to get MSP ID: %w", err)
	}
	return mspID, nil
}

func serialize(p *paper.ImportPaper, err error) (string, error) {
	if err != nil {
		return "", err
	}
	data, err := p.Serialize()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
