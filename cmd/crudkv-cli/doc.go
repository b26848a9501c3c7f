// Package main provides the entry point for crudkv-cli.
//
// crudkv-cli is the command-line client for crudkv-server:
//
//	crudkv-cli create --data hello
//	crudkv-cli get 3f2c...
//	crudkv-cli system status -o yaml
package main
