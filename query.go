package kiln

// ServiceQuery defines criteria for querying registrations.
type ServiceQuery struct {
	// Class filters by definition class.
	// Empty string matches all classes, including plain values.
	Class string

	// DependsOn keeps registrations that reference the named object.
	// Empty string matches all.
	DependsOn string

	// Built filters by whether an instance exists.
	// nil matches all registrations.
	Built *bool
}

// Query returns information about registrations matching the query, in
// registration order.
//
// Example:
//
//	// Find every repository that has not been built yet
//	built := false
//	results := kiln.Query(c, kiln.ServiceQuery{
//	    Class: "app.UserRepo",
//	    Built: &built,
//	})
func Query(c *Container, query ServiceQuery) []ServiceInfo {
	var results []ServiceInfo

	for _, name := range c.Services() {
		info := c.Inspect(name)

		if query.Class != "" && info.Class != query.Class {
			continue
		}

		if query.DependsOn != "" && !contains(info.Dependencies, query.DependsOn) {
			continue
		}

		if query.Built != nil && info.Built != *query.Built {
			continue
		}

		results = append(results, info)
	}

	return results
}

// QueryNames returns the names of registrations matching the query.
func QueryNames(c *Container, query ServiceQuery) []string {
	results := Query(c, query)
	names := make([]string, len(results))
	for i, info := range results {
		names[i] = info.Name
	}
	return names
}

// FindByClass returns registrations of the given class.
func FindByClass(c *Container, class string) []ServiceInfo {
	return Query(c, ServiceQuery{Class: class})
}

// FindBuilt returns registrations that hold an instance.
func FindBuilt(c *Container) []ServiceInfo {
	built := true
	return Query(c, ServiceQuery{Built: &built})
}

// FindDependents returns registrations referencing name.
func FindDependents(c *Container, name string) []ServiceInfo {
	return Query(c, ServiceQuery{DependsOn: name})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
