package models

type Department string

const (
	DepartmentOPD        Department = "OPD"
	DepartmentEmergency  Department = "Emergency"
	DepartmentLaboratory Department = "Laboratory"
	DepartmentRadiology  Department = "Radiology"
	DepartmentPharmacy   Department = "Pharmacy"
	DepartmentBilling    Department = "Billing"
)

// Short codes used as queue number prefixes ("OPD-014").
var departmentCodes = map[Department]string{
	DepartmentOPD:        "OPD",
	DepartmentEmergency:  "EMG",
	DepartmentLaboratory: "LAB",
	DepartmentRadiology:  "RAD",
	DepartmentPharmacy:   "PHA",
	DepartmentBilling:    "BIL",
}

func Departments() []Department {
	return []Department{
		DepartmentOPD,
		DepartmentEmergency,
		DepartmentLaboratory,
		DepartmentRadiology,
		DepartmentPharmacy,
		DepartmentBilling,
	}
}

func (d Department) Valid() bool {
	_, ok := departmentCodes[d]
	return ok
}

func (d Department) Code() string {
	return departmentCodes[d]
}
