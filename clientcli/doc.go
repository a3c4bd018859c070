// Package clientcli provides a client library for storehouse servers.
//
// Every request is signed with the shared secret: the client builds the
// same canonical string the server does and sends the resulting hex digest
// in the signature field. Profiles in a YAML file hold the endpoint, secret
// and algorithm for each server.
//
// # Basic Usage
//
//	client, err := clientcli.New(&clientcli.Config{
//		Endpoint: "http://localhost:8888",
//		Secret:   "shared-secret",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := client.Upload(ctx, clientcli.UploadOptions{
//		LocalPath:  "./file.txt",
//		RemotePath: "documents/file.txt",
//	})
//
//	fetched, err := client.Fetch(ctx, clientcli.FetchOptions{
//		URL:        "https://example.com/logo.png",
//		RemotePath: "img/logo.png",
//	})
//
// # Profile Configuration
//
//	configFile, err := clientcli.LoadConfigFile(clientcli.DefaultConfigPath())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("production")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := clientcli.New(clientcli.ConfigFromProfile(profile))
//
// # Output Formatting
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatUpload(os.Stdout, results)
package clientcli
