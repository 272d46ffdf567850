// Package providers holds the service providers shipped with the framework.
//
//	catalog := container.NewCatalog().
//	    Add("bedrock.Config", &providers.ConfigServiceProvider{Config: cfg}).
//	    Add("bedrock.Database", &providers.DatabaseServiceProvider{})
//	providers.RegisterKinds(catalog)
package providers
