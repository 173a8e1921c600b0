package searchparameter

// SearchParameterRepository is the read side the query builder needs.
type SearchParameterRepository interface {
	// List returns the parameters in catalog order.
	List() []*SearchParameter
	GetByName(name string) (*SearchParameter, bool)
}
