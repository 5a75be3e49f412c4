// Package warranty holds the records managed by the Marv warranty backend and
// the coverage rules the gateway evaluates on top of them.
package warranty

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeviceStatus is the lifecycle state of a device
type DeviceStatus string

const (
	DeviceStatusActive   DeviceStatus = "active"
	DeviceStatusInRepair DeviceStatus = "in_repair"
	DeviceStatusRepaired DeviceStatus = "repaired"
	DeviceStatusScrapped DeviceStatus = "scrapped"
)

// IsValid checks if the status is valid
func (s DeviceStatus) IsValid() bool {
	switch s {
	case DeviceStatusActive, DeviceStatusInRepair, DeviceStatusRepaired, DeviceStatusScrapped:
		return true
	}
	return false
}

// TestResult is the outcome of a quality test
type TestResult string

const (
	TestResultPassed  TestResult = "passed"
	TestResultWarning TestResult = "warning"
	TestResultFailed  TestResult = "failed"
)

// IsValid checks if the result is valid
func (r TestResult) IsValid() bool {
	switch r {
	case TestResultPassed, TestResultWarning, TestResultFailed:
		return true
	}
	return false
}

// JobRole is the position of a staff member
type JobRole string

const (
	JobRoleAssembler JobRole = "assembler"
	JobRoleTester    JobRole = "tester"
	JobRoleRepairman JobRole = "repairman"
	JobRoleQuality   JobRole = "quality"
	JobRoleOperator  JobRole = "operator"
)

// IsValid checks if the role is valid
func (r JobRole) IsValid() bool {
	switch r {
	case JobRoleAssembler, JobRoleTester, JobRoleRepairman, JobRoleQuality, JobRoleOperator:
		return true
	}
	return false
}

// AccountRole is the permission level of a dashboard account
type AccountRole string

const (
	AccountRoleAdmin   AccountRole = "admin"
	AccountRoleManager AccountRole = "manager"
	AccountRoleViewer  AccountRole = "viewer"
)

// IsValid checks if the role is valid
func (r AccountRole) IsValid() bool {
	switch r {
	case AccountRoleAdmin, AccountRoleManager, AccountRoleViewer:
		return true
	}
	return false
}

// Person is a staff member (assembler, tester, repairman, ...)
type Person struct {
	ID       int64   `json:"id,omitempty"`
	FullName string  `json:"full_name"`
	JobRole  JobRole `json:"job_role,omitempty"`
	Phone    string  `json:"phone,omitempty"`
	HireDate *string `json:"hire_date"`
	Note     string  `json:"note,omitempty"`
}

// Product is a product model devices are built from
type Product struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	Model    string `json:"model,omitempty"`
	Category string `json:"category,omitempty"`
	Extra    string `json:"extra,omitempty"`
}

// Device is a single serialised unit
type Device struct {
	ID            int64        `json:"id,omitempty"`
	SerialNumber  string       `json:"serial_number"`
	ProductID     *int64       `json:"product_id"`
	AssembledBy   *int64       `json:"assembled_by"`
	TestedBy      *int64       `json:"tested_by"`
	AssemblyDate  *string      `json:"assembly_date"`
	TestDate      *string      `json:"test_date"`
	WarrantyStart *string      `json:"warranty_start"`
	WarrantyEnd   *string      `json:"warranty_end"`
	Status        DeviceStatus `json:"status"`
	Note          string       `json:"note"`
	CreatedAt     *time.Time   `json:"created_at,omitempty"`
}

// Repair is a repair performed on a device
type Repair struct {
	ID               int64            `json:"id,omitempty"`
	DeviceID         int64            `json:"device_id"`
	ReportedIssue    string           `json:"reported_issue"`
	RepairActions    string           `json:"repair_actions,omitempty"`
	RepairedBy       *int64           `json:"repaired_by"`
	RepairDate       *string          `json:"repair_date"`
	IsWarrantyRepair bool             `json:"is_warranty_repair"`
	Cost             *decimal.Decimal `json:"cost"`
	Note             string           `json:"note,omitempty"`
	CreatedAt        *time.Time       `json:"created_at,omitempty"`
}

// TestRecord is a quality test run against a device
type TestRecord struct {
	ID        int64      `json:"id,omitempty"`
	DeviceID  int64      `json:"device_id"`
	TesterID  *int64     `json:"tester_id"`
	TestName  string     `json:"test_name"`
	TestDate  *string    `json:"test_date"`
	Result    TestResult `json:"test_result"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Account is a dashboard login
type Account struct {
	ID        int64       `json:"id,omitempty"`
	Username  string      `json:"username"`
	Role      AccountRole `json:"role"`
	CreatedAt *time.Time  `json:"created_at,omitempty"`
}

// StringPtr returns nil for an empty string, matching the backend's null semantics.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Int64Ptr returns nil for zero, matching the backend's null semantics.
func Int64Ptr(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}
