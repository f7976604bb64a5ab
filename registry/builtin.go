package registry

// Builtin returns the stock catalog of resource definitions. User
// catalogs loaded from YAML are merged over these, so any builtin can be
// overridden by ref.
func Builtin() *Catalog {
	cat := NewCatalog()
	for _, d := range builtinDefinitions {
		if err := cat.Add(d); err != nil {
			// builtins are fixed at compile time
			panic(err)
		}
	}
	return cat
}

var builtinDefinitions = []Definition{
	// ec2
	{
		Service: "ec2", Resource: "instances",
		Operation:   "DescribeInstances",
		ResourceKey: "Reservations",
		IDAttribute: "InstanceId",
	},
	{
		Service: "ec2", Resource: "volumes",
		Operation:   "DescribeVolumes",
		ResourceKey: "Volumes",
		IDAttribute: "VolumeId",
	},
	{
		Service: "ec2", Resource: "security_groups",
		Operation:   "DescribeSecurityGroups",
		ResourceKey: "SecurityGroups",
		IDAttribute: "GroupId",
	},
	{
		Service: "ec2", Resource: "snapshots",
		Operation:   "DescribeSnapshots",
		ResourceKey: "Snapshots",
		IDAttribute: "SnapshotId",
		Params:      map[string]any{"OwnerIds": []string{"self"}},
	},
	{
		Service: "ec2", Resource: "vpcs",
		Operation:   "DescribeVpcs",
		ResourceKey: "Vpcs",
		IDAttribute: "VpcId",
	},
	{
		Service: "ec2", Resource: "subnets",
		Operation:   "DescribeSubnets",
		ResourceKey: "Subnets",
		IDAttribute: "SubnetId",
	},
	{
		Service: "ec2", Resource: "launch_templates",
		Operation:   "DescribeLaunchTemplates",
		ResourceKey: "LaunchTemplates",
		IDAttribute: "LaunchTemplateId",
	},

	// iam, account scoped
	{
		Service: "iam", Resource: "users",
		Global:      true,
		Operation:   "ListUsers",
		ResourceKey: "Users",
		IDAttribute: "UserName",
	},
	{
		Service: "iam", Resource: "roles",
		Global:      true,
		Operation:   "ListRoles",
		ResourceKey: "Roles",
		IDAttribute: "RoleName",
	},
	{
		Service: "iam", Resource: "policies",
		Global:      true,
		Operation:   "ListPolicies",
		ResourceKey: "Policies",
		IDAttribute: "Arn",
		Params:      map[string]any{"Scope": "Local"},
	},
	{
		Service: "iam", Resource: "policy_documents",
		Global:      true,
		Operation:   "GetPolicyVersion",
		ResourceKey: "PolicyVersion",
		IDAttribute: "Arn",
		Requires:    []Ref{{Service: "iam", Resource: "policies"}},
	},

	// kms
	{
		Service: "kms", Resource: "keys",
		Operation:     "ListKeys",
		ResourceKey:   "Keys",
		IDAttribute:   "KeyId",
		PageMarker:    "NextMarker",
		RequestMarker: "Marker",
	},
	{
		Service: "kms", Resource: "key_rotation",
		Operation:   "GetKeyRotationStatus",
		ResourceKey: "Rotation",
		IDAttribute: "KeyId",
		Requires:    []Ref{{Service: "kms", Resource: "keys"}},
	},

	// route53, account scoped
	{
		Service: "route53", Resource: "hosted_zones",
		Global:      true,
		Operation:   "ListHostedZones",
		ResourceKey: "HostedZones",
		IDAttribute: "Id",
	},
	{
		Service: "route53", Resource: "record_sets",
		Global:      true,
		Operation:   "ListResourceRecordSets",
		ResourceKey: "ResourceRecordSets",
		IDAttribute: "Name",
		Requires:    []Ref{{Service: "route53", Resource: "hosted_zones"}},
	},

	// load balancing
	{
		Service: "elbv2", Resource: "load_balancers",
		Operation:     "DescribeLoadBalancers",
		ResourceKey:   "LoadBalancers",
		IDAttribute:   "LoadBalancerArn",
		PageMarker:    "NextMarker",
		RequestMarker: "Marker",
	},
	{
		Service: "elbv2", Resource: "target_groups",
		Operation:     "DescribeTargetGroups",
		ResourceKey:   "TargetGroups",
		IDAttribute:   "TargetGroupArn",
		PageMarker:    "NextMarker",
		RequestMarker: "Marker",
	},

	// databases
	{
		Service: "dynamodb", Resource: "tables",
		Operation:     "ListTables",
		ResourceKey:   "TableNames",
		IDAttribute:   "TableName",
		PageMarker:    "LastEvaluatedTableName",
		RequestMarker: "ExclusiveStartTableName",
	},
	{
		Service: "rds", Resource: "instances",
		Operation:   "DescribeDBInstances",
		ResourceKey: "DBInstances",
		IDAttribute: "DBInstanceIdentifier",
		PageMarker:  "Marker",
	},
	{
		Service: "redshift", Resource: "clusters",
		Operation:   "DescribeClusters",
		ResourceKey: "Clusters",
		IDAttribute: "ClusterIdentifier",
		PageMarker:  "Marker",
	},
	{
		Service: "memorydb", Resource: "clusters",
		Operation:   "DescribeClusters",
		ResourceKey: "Clusters",
		IDAttribute: "Name",
	},

	// serverless and containers
	{
		Service: "lambda", Resource: "functions",
		Operation:     "ListFunctions",
		ResourceKey:   "Functions",
		IDAttribute:   "FunctionName",
		PageMarker:    "NextMarker",
		RequestMarker: "Marker",
	},
	{
		Service: "ecs", Resource: "clusters",
		Operation:   "ListClusters",
		ResourceKey: "ClusterArns",
		IDAttribute: "ClusterArn",
	},
	{
		Service: "eks", Resource: "clusters",
		Operation:   "ListClusters",
		ResourceKey: "Clusters",
		IDAttribute: "Name",
	},
	{
		Service: "ecr", Resource: "repositories",
		Operation:   "DescribeRepositories",
		ResourceKey: "Repositories",
		IDAttribute: "RepositoryName",
	},

	// scaling
	{
		Service: "autoscaling", Resource: "groups",
		Operation:   "DescribeAutoScalingGroups",
		ResourceKey: "AutoScalingGroups",
		IDAttribute: "AutoScalingGroupName",
	},

	// storage and messaging
	{
		Service: "s3", Resource: "buckets",
		Global:      true,
		Operation:   "ListBuckets",
		ResourceKey: "Buckets",
		IDAttribute: "Name",
	},
	{
		Service: "sqs", Resource: "queues",
		Operation:   "ListQueues",
		ResourceKey: "QueueUrls",
		IDAttribute: "QueueUrl",
	},

	// audit
	{
		Service: "cloudtrail", Resource: "trails",
		Operation:   "DescribeTrails",
		ResourceKey: "TrailList",
		IDAttribute: "Name",
	},
	{
		Service: "cloudwatchlogs", Resource: "log_groups",
		Operation:   "DescribeLogGroups",
		ResourceKey: "LogGroups",
		IDAttribute: "LogGroupName",
	},
}
